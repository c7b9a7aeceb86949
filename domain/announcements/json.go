package announcements

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"
)

// JSON feeds carry the shard as a hex string (the masterchain shard
// doesn't fit a JSON number exactly) and hashes hex-encoded.
type jsonAnnouncement struct {
	Workchain int32  `json:"workchain"`
	Shard     string `json:"shard"`
	Seqno     uint32 `json:"seqno"`
	RootHash  string `json:"root_hash"`
	FileHash  string `json:"file_hash"`
	GenUtime  uint32 `json:"gen_utime,omitempty"`
}

func decodeJSON(body []byte) (*HeadAnnouncement, error) {
	a := &HeadAnnouncement{}

	workchain, err := jsonparser.GetInt(body, "workchain")
	if err != nil {
		return nil, fmt.Errorf("unable to read workchain: %w", err)
	}
	a.Workchain = int32(workchain)

	shard, err := jsonparser.GetString(body, "shard")
	if err != nil {
		return nil, fmt.Errorf("unable to read shard: %w", err)
	}
	if a.Shard, err = strconv.ParseUint(shard, 16, 64); err != nil {
		return nil, fmt.Errorf("unable to parse shard '%s': %w", shard, err)
	}

	seqno, err := jsonparser.GetInt(body, "seqno")
	if err != nil {
		return nil, fmt.Errorf("unable to read seqno: %w", err)
	}
	a.Seqno = uint32(seqno)

	if a.RootHash, err = readHexHash(body, "root_hash"); err != nil {
		return nil, err
	}
	if a.FileHash, err = readHexHash(body, "file_hash"); err != nil {
		return nil, err
	}

	if utime, err := jsonparser.GetInt(body, "gen_utime"); err == nil {
		a.GenUtime = uint32(utime)
	}

	return a, nil
}

func readHexHash(body []byte, key string) ([]byte, error) {
	s, err := jsonparser.GetString(body, key)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", key, err)
	}
	hash, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", key, err)
	}
	return hash, nil
}

// EncodeJSON produces an uncompressed JSON wire payload.
func EncodeJSON(a *HeadAnnouncement) ([]byte, error) {
	body, err := json.Marshal(&jsonAnnouncement{
		Workchain: a.Workchain,
		Shard:     strconv.FormatUint(a.Shard, 16),
		Seqno:     a.Seqno,
		RootHash:  hex.EncodeToString(a.RootHash),
		FileHash:  hex.EncodeToString(a.FileHash),
		GenUtime:  a.GenUtime,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to encode announcement: %w", err)
	}
	return append([]byte{byte(CompressionNone)}, body...), nil
}
