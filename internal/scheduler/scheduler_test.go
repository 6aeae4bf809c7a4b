// Blockfeed - Community Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/blockfeed

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestAddJobRejectsInvalidSpec(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("bad", "not a cron spec", func(context.Context) error { return nil })
	if err == nil {
		t.Fatal("invalid cron spec should be rejected")
	}
}

func TestAddJobAcceptsDescriptorSpecs(t *testing.T) {
	s := New(zerolog.Nop())
	for _, spec := range []string{"@every 30m", "@hourly", "*/5 * * * *"} {
		if err := s.AddJob("job-"+spec, spec, func(context.Context) error { return nil }); err != nil {
			t.Errorf("spec %q should be accepted: %v", spec, err)
		}
	}
}

func TestNextRunUnknownJob(t *testing.T) {
	s := New(zerolog.Nop())
	if got := s.NextRun("ghost"); !got.IsZero() {
		t.Errorf("unknown job NextRun = %v, want zero time", got)
	}
}

func TestScheduledJobRuns(t *testing.T) {
	s := New(zerolog.Nop())
	ran := make(chan struct{}, 1)

	err := s.AddJob("tick", "@every 10ms", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	s.Start()
	defer func() { <-s.Stop().Done() }()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled job did not run")
	}
}
