package repository

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

var trainingCodePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// ErrUnknownTrainingCode is returned for codes outside the synchronized set.
var ErrUnknownTrainingCode = errors.New("unknown training code")

// ValidTrainingCodeFormat reports whether code uses the allowed charset.
func ValidTrainingCodeFormat(code string) bool {
	return trainingCodePattern.MatchString(code)
}

// CodeWhitelist holds the training codes known to exist. It is refreshed by
// the column sync and read on every training record access.
type CodeWhitelist struct {
	mu    sync.RWMutex
	codes map[string]struct{}
}

func NewCodeWhitelist() *CodeWhitelist {
	return &CodeWhitelist{codes: map[string]struct{}{}}
}

func (w *CodeWhitelist) Replace(codes []string) {
	next := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if ValidTrainingCodeFormat(c) {
			next[c] = struct{}{}
		}
	}
	w.mu.Lock()
	w.codes = next
	w.mu.Unlock()
}

func (w *CodeWhitelist) Add(code string) {
	if !ValidTrainingCodeFormat(code) {
		return
	}
	w.mu.Lock()
	w.codes[code] = struct{}{}
	w.mu.Unlock()
}

func (w *CodeWhitelist) Contains(code string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.codes[code]
	return ok
}

func (w *CodeWhitelist) Codes() []string {
	w.mu.RLock()
	out := make([]string, 0, len(w.codes))
	for c := range w.codes {
		out = append(out, c)
	}
	w.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Validate must pass before a code is used to address storage.
func (w *CodeWhitelist) Validate(code string) error {
	if !ValidTrainingCodeFormat(code) {
		return fmt.Errorf("%w: %q has invalid format", ErrUnknownTrainingCode, code)
	}
	if !w.Contains(code) {
		return fmt.Errorf("%w: %q", ErrUnknownTrainingCode, code)
	}
	return nil
}
