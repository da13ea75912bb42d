package vsphere

import (
	"fmt"
	"testing"
)

func TestCredentialsUsername(t *testing.T) {
	tests := []struct {
		name     string
		creds    Credentials
		expected string
	}{
		{
			name:     "plain user",
			creds:    Credentials{User: "operator"},
			expected: "operator",
		},
		{
			name:     "domain qualified",
			creds:    Credentials{User: "operator", Domain: "corp"},
			expected: `corp\operator`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creds.Username(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestCredentialsUsername_DefaultsToCurrentUser(t *testing.T) {
	creds := Credentials{Domain: "corp"}

	got := creds.Username()
	if got == `corp\` {
		t.Errorf("Expected current account name appended, got %q", got)
	}
}

func TestResolvePassword_Explicit(t *testing.T) {
	creds := Credentials{User: "operator", Password: "already-set"}

	err := creds.ResolvePassword(func(label string) (string, error) {
		t.Fatal("Prompt should not run when password is set")
		return "", nil
	})
	if err != nil {
		t.Fatalf("ResolvePassword failed: %v", err)
	}
	if creds.Password != "already-set" {
		t.Errorf("Expected password unchanged, got %q", creds.Password)
	}
}

func TestResolvePassword_Prompt(t *testing.T) {
	creds := Credentials{User: "operator", Domain: "corp"}

	var asked string
	err := creds.ResolvePassword(func(label string) (string, error) {
		asked = label
		return "s3cret", nil
	})
	if err != nil {
		t.Fatalf("ResolvePassword failed: %v", err)
	}
	if creds.Password != "s3cret" {
		t.Errorf("Expected prompted password, got %q", creds.Password)
	}
	if asked != `corp\operator password: ` {
		t.Errorf("Unexpected prompt label: %q", asked)
	}
}

func TestResolvePassword_PromptError(t *testing.T) {
	creds := Credentials{User: "operator"}

	err := creds.ResolvePassword(func(label string) (string, error) {
		return "", fmt.Errorf("input closed")
	})
	if err == nil {
		t.Fatal("Expected prompt error to propagate, got nil")
	}
}
