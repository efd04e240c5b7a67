package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestCommunityName(t *testing.T) {
	valid := []string{
		"Books",
		"Friday Night Gaming",
		"a",
		"family & friends",
		"日本語クラブ",
		strings.Repeat("a", 64),
	}
	for _, name := range valid {
		if err := CommunityName(name); err != nil {
			t.Errorf("CommunityName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []struct {
		name string
		desc string
	}{
		{"", "empty"},
		{"   ", "whitespace only"},
		{"new\nline", "newline"},
		{"foo\tbar", "tab"},
		{"bell\x07", "control character"},
		{strings.Repeat("a", 65), "too long (65 chars)"},
	}
	for _, tc := range invalid {
		if err := CommunityName(tc.name); err == nil {
			t.Errorf("CommunityName(%q) [%s] = nil, want error", tc.name, tc.desc)
		}
	}
}

func TestChannelName(t *testing.T) {
	valid := []string{
		"general",
		"off-topic",
		"a",
		"a1",
		"voice-2",
		"alpha-beta-gamma",
	}
	for _, name := range valid {
		if err := ChannelName(name); err != nil {
			t.Errorf("ChannelName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []struct {
		name string
		desc string
	}{
		{"", "empty"},
		{"General", "uppercase"},
		{"off topic", "space"},
		{"-dash-start", "starts with hyphen"},
		{"dash-end-", "ends with hyphen"},
		{"-", "single hyphen"},
		{"has.dots", "dot"},
		{"has/slash", "slash"},
		{strings.Repeat("a", 33), "too long (33 chars)"},
		{"hello!", "exclamation"},
	}
	for _, tc := range invalid {
		if err := ChannelName(tc.name); err == nil {
			t.Errorf("ChannelName(%q) [%s] = nil, want error", tc.name, tc.desc)
		}
	}
}

func TestChannelName_MaxLength(t *testing.T) {
	if err := ChannelName(strings.Repeat("a", 32)); err != nil {
		t.Errorf("ChannelName(32 chars) = %v, want nil", err)
	}
	if err := ChannelName(strings.Repeat("a", 33)); err == nil {
		t.Error("ChannelName(33 chars) = nil, want error")
	}
}

func TestNameSentinelErrors(t *testing.T) {
	if err := CommunityName(""); !errors.Is(err, ErrInvalidCommunityName) {
		t.Errorf("error should wrap ErrInvalidCommunityName, got: %v", err)
	}
	if err := ChannelName("INVALID"); !errors.Is(err, ErrInvalidChannelName) {
		t.Errorf("error should wrap ErrInvalidChannelName, got: %v", err)
	}
}
