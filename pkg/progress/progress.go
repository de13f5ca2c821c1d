// Package progress shows terminal activity indicators for long API calls.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// Config controls spinner output.
type Config struct {
	// Enabled determines if indicators are shown at all.
	Enabled bool
	// Writer receives the spinner frames. Keep it apart from command output.
	Writer io.Writer
	// RefreshRate is how often the spinner redraws.
	RefreshRate time.Duration
}

// DefaultConfig writes to stderr.
func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		Writer:      os.Stderr,
		RefreshRate: 100 * time.Millisecond,
	}
}

// Spinner is a single-line activity indicator.
type Spinner struct {
	spinner *pterm.SpinnerPrinter
	config  *Config
	active  bool
	mu      sync.Mutex
}

// NewSpinner creates a spinner. A nil config uses DefaultConfig.
func NewSpinner(config *Config) *Spinner {
	if config == nil {
		config = DefaultConfig()
	}
	return &Spinner{config: config}
}

// Start shows the spinner with message.
func (s *Spinner) Start(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled {
		return nil
	}
	if s.active {
		return fmt.Errorf("spinner already active")
	}

	printer := pterm.DefaultSpinner.WithRemoveWhenDone(true)
	if s.config.Writer != nil {
		printer = printer.WithWriter(s.config.Writer)
	}
	if s.config.RefreshRate > 0 {
		printer = printer.WithDelay(s.config.RefreshRate)
	}

	var err error
	s.spinner, err = printer.Start(message)
	if err != nil {
		return fmt.Errorf("failed to start spinner: %w", err)
	}
	s.active = true
	return nil
}

// Update replaces the spinner message.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.spinner.UpdateText(message)
	}
}

// Success stops the spinner with a success mark.
func (s *Spinner) Success(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.spinner.Success(message)
		s.active = false
	}
}

// Failure stops the spinner with a failure mark.
func (s *Spinner) Failure(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.spinner.Fail(message)
		s.active = false
	}
}

// Stop removes the spinner without a final message.
func (s *Spinner) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil
	}
	s.active = false
	return s.spinner.Stop()
}

// IsActive reports whether the spinner is running.
func (s *Spinner) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Run shows a spinner while fn runs and marks the outcome.
func Run(s *Spinner, message string, fn func() error) error {
	if err := s.Start(message); err != nil {
		return fn()
	}
	err := fn()
	if err != nil {
		s.Failure(message)
		return err
	}
	_ = s.Stop()
	return nil
}
