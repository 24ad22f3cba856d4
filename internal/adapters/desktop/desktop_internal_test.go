package desktop

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PabloGalante/folio-inbox/internal/domain"
)

func TestRequestPermission(t *testing.T) {
	cases := []struct {
		answer string
		want   domain.Permission
	}{
		{"y\n", domain.PermissionGranted},
		{"YES\n", domain.PermissionGranted},
		{"n\n", domain.PermissionDenied},
		{"", domain.PermissionDenied},
	}

	for _, tc := range cases {
		var out bytes.Buffer
		n := NewNotifier(domain.PermissionDefault, strings.NewReader(tc.answer), &out)

		got, err := n.RequestPermission(context.Background())
		if err != nil {
			t.Fatalf("RequestPermission(%q) failed: %v", tc.answer, err)
		}
		if got != tc.want || n.Permission() != tc.want {
			t.Fatalf("RequestPermission(%q) = %q, want %q", tc.answer, got, tc.want)
		}
		if !strings.Contains(out.String(), "Allow desktop notifications") {
			t.Fatalf("expected a prompt, got %q", out.String())
		}
	}
}

func TestRequestPermissionKeepsDecision(t *testing.T) {
	n := NewNotifier(domain.PermissionDenied, strings.NewReader("y\n"), nil)

	got, err := n.RequestPermission(context.Background())
	if err != nil {
		t.Fatalf("RequestPermission failed: %v", err)
	}
	if got != domain.PermissionDenied {
		t.Fatalf("expected denied to stick, got %q", got)
	}
}

func TestShowPassesNotification(t *testing.T) {
	var gotTitle, gotBody string
	var gotIcon any
	n := NewNotifier(domain.PermissionGranted, nil, nil)
	n.notify = func(title, message string, icon any) error {
		gotTitle, gotBody, gotIcon = title, message, icon
		return nil
	}

	err := n.Show(context.Background(), domain.Notification{Title: "New message from Ana", Body: "Hi", Icon: "icon.png"})
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if gotTitle != "New message from Ana" || gotBody != "Hi" || gotIcon != "icon.png" {
		t.Fatalf("unexpected call: %q %q %v", gotTitle, gotBody, gotIcon)
	}

	n.notify = func(string, string, any) error { return errors.New("no dbus") }
	if err := n.Show(context.Background(), domain.Notification{}); err == nil {
		t.Fatal("expected error from failing backend")
	}
}
