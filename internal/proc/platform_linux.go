//go:build linux

package proc

func newPlatformReader(opts Options) SocketTableReader {
	return &ProcNetReader{Root: opts.ProcRoot, Logger: opts.Logger}
}

func newPlatformCorrelator(opts Options) Correlator {
	return &FDCorrelator{Root: opts.ProcRoot, Logger: opts.Logger}
}
