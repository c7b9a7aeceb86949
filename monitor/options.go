package monitor

type Options struct {
	ListenAddress         string
	StdoutIntervalSeconds uint64
}

func (o *Options) WithDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.ListenAddress == "" {
		o.ListenAddress = ":7000"
	}
	return o
}
