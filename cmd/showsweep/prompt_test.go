package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"showsweep/internal/actions"
	"showsweep/internal/config"
	"showsweep/internal/sources"
	"showsweep/internal/sweep"
)

func configSweep(skipRequests bool, action string) config.Sweep {
	return config.Sweep{SkipRequests: skipRequests, Action: action}
}

func TestParseChoice(t *testing.T) {
	cases := []struct {
		input string
		want  actions.Disposition
		ok    bool
	}{
		{"", actions.Keep, true},
		{"1\n", actions.Delete, true},
		{" 2 ", actions.KeepFirstSeason, true},
		{"3", actions.KeepFirstEpisode, true},
		{"4", actions.Keep, true},
		{"delete", actions.Delete, true},
		{"keep-first-season", actions.KeepFirstSeason, true},
		{"0", "", false},
		{"5", "", false},
		{"later", "", false},
	}
	for _, tc := range cases {
		got, ok := parseChoice(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("parseChoice(%q) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestPromptChooser(t *testing.T) {
	decision := sweep.Decision{Item: sources.Item{Key: "1", Title: "Lost", Year: 2004, SizeBytes: 2048}}

	cases := []struct {
		name  string
		input string
		want  actions.Disposition
	}{
		{"picks by number", "1\n", actions.Delete},
		{"retries after invalid input", "9\n2\n", actions.KeepFirstSeason},
		{"end of input keeps", "", actions.Keep},
		{"repeated invalid input keeps", "x\ny\nz\n1\n", actions.Keep},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			chooser := newPromptChooser(strings.NewReader(tc.input), &out)
			got, err := chooser.Choose(context.Background(), decision)
			if err != nil {
				t.Fatalf("Choose: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Choose = %q, want %q\n%s", got, tc.want, out.String())
			}
			if !strings.Contains(out.String(), "Lost (2004)") {
				t.Fatalf("prompt should name the series:\n%s", out.String())
			}
		})
	}
}

func TestPromptChooserHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	chooser := newPromptChooser(strings.NewReader("1\n"), &bytes.Buffer{})
	if _, err := chooser.Choose(ctx, sweep.Decision{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
