// Package desktop shows inbox notifications and plays the new-message beep on
// the local machine.
package desktop

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/PabloGalante/folio-inbox/internal/domain"
)

const appName = "Folio Inbox"

// Notifier sends system notifications through the OS notification service.
// Permission starts in the configured state; in the default state
// RequestPermission asks on the prompt reader (usually the terminal).
type Notifier struct {
	mu     sync.Mutex
	perm   domain.Permission
	prompt io.Reader
	out    io.Writer

	notify func(title, message string, icon any) error
}

func NewNotifier(initial domain.Permission, prompt io.Reader, out io.Writer) *Notifier {
	beeep.AppName = appName
	if initial == "" {
		initial = domain.PermissionDefault
	}
	return &Notifier{
		perm:   initial,
		prompt: prompt,
		out:    out,
		notify: beeep.Notify,
	}
}

func (n *Notifier) Permission() domain.Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.perm
}

func (n *Notifier) RequestPermission(ctx context.Context) (domain.Permission, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.perm != domain.PermissionDefault {
		return n.perm, nil
	}
	if n.prompt == nil {
		return n.perm, nil
	}

	if n.out != nil {
		fmt.Fprint(n.out, "Allow desktop notifications for new messages? [y/N] ")
	}

	answer, err := bufio.NewReader(n.prompt).ReadString('\n')
	if err != nil && err != io.EOF {
		return n.perm, fmt.Errorf("reading permission answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		n.perm = domain.PermissionGranted
	default:
		n.perm = domain.PermissionDenied
	}
	return n.perm, nil
}

func (n *Notifier) Show(ctx context.Context, notification domain.Notification) error {
	var icon any
	if notification.Icon != "" {
		icon = notification.Icon
	}
	if err := n.notify(notification.Title, notification.Body, icon); err != nil {
		return fmt.Errorf("desktop notify: %w", err)
	}
	return nil
}

// Beeper plays the system beep.
type Beeper struct {
	beep func(freq float64, duration int) error
}

func NewBeeper() *Beeper {
	return &Beeper{beep: beeep.Beep}
}

func (b *Beeper) Play(ctx context.Context) error {
	return b.beep(beeep.DefaultFreq, beeep.DefaultDuration)
}
