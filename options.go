package ar

import (
	"log/slog"
)

// openConfig holds configuration for Open.
type openConfig struct {
	logger *slog.Logger
	mmap   bool
}

// OpenOption configures Open.
type OpenOption func(*openConfig)

// OpenWithLogger sets the logger used for debug output while opening and iterating the archive.
func OpenWithLogger(logger *slog.Logger) OpenOption {
	return func(cfg *openConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// OpenWithMmap controls whether the archive is memory mapped (the default on Unix systems) or
// read into memory.
func OpenWithMmap(enabled bool) OpenOption {
	return func(cfg *openConfig) {
		cfg.mmap = enabled
	}
}

// writeConfig holds configuration for WriteArchive.
type writeConfig struct {
	logger        *slog.Logger
	symbols       SymbolReader
	deterministic bool
}

// WriteOption configures WriteArchive.
type WriteOption func(*writeConfig)

// WriteWithLogger sets the logger used for debug output while writing the archive.
func WriteWithLogger(logger *slog.Logger) WriteOption {
	return func(cfg *writeConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WriteWithSymbolReader replaces the function used to list the symbols each member defines when
// a symbol table is requested. The default understands ELF, Mach-O and PE/COFF objects.
func WriteWithSymbolReader(r SymbolReader) WriteOption {
	return func(cfg *writeConfig) {
		if r != nil {
			cfg.symbols = r
		}
	}
}

// WriteWithDeterministic controls whether member timestamps, owners and modes are replaced with
// fixed values, so that identical inputs produce byte-identical archives. It is enabled by
// default.
func WriteWithDeterministic(enabled bool) WriteOption {
	return func(cfg *writeConfig) {
		cfg.deterministic = enabled
	}
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
