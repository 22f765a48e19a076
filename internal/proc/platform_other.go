//go:build !linux

package proc

func newPlatformReader(opts Options) SocketTableReader {
	return &ConnectionsReader{Logger: opts.Logger}
}

func newPlatformCorrelator(opts Options) Correlator {
	return &ConnectionsCorrelator{Logger: opts.Logger}
}
