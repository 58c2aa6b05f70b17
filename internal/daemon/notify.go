package daemon

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/godbus/dbus/v5"
)

// Notifier interface for desktop notifications
type Notifier interface {
	Notify(title, body string) error
}

// NewNotifier returns a platform-specific notifier
func NewNotifier() Notifier {
	switch runtime.GOOS {
	case "darwin":
		return &darwinNotifier{}
	case "linux":
		return &linuxNotifier{}
	case "windows":
		return &windowsNotifier{}
	default:
		return &nullNotifier{}
	}
}

// linuxNotifier sends notifications over the session bus using
// org.freedesktop.Notifications.
type linuxNotifier struct{}

func (n *linuxNotifier) Notify(title, body string) error {
	conn, err := dbus.SessionBus()
	if err != nil {
		slog.Debug("session bus unavailable", "error", err)
		return err
	}

	obj := conn.Object("org.freedesktop.Notifications", "/org/freedesktop/Notifications")
	call := obj.Call("org.freedesktop.Notifications.Notify", 0,
		"drowse",          // app name
		uint32(0),         // replaces id
		"",                // icon
		title,             // summary
		body,              // body
		[]string{},        // actions
		map[string]dbus.Variant{}, // hints
		int32(5000),       // timeout ms
	)
	if call.Err != nil {
		slog.Debug("notification failed", "error", call.Err)
		return call.Err
	}
	return nil
}

// darwinNotifier sends notifications on macOS using osascript
type darwinNotifier struct{}

func (n *darwinNotifier) Notify(title, body string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, body, title)
	cmd := exec.Command("osascript", "-e", script)
	if err := cmd.Run(); err != nil {
		slog.Debug("macOS notification failed", "error", err)
		return err
	}
	return nil
}

// windowsNotifier sends a balloon notification via PowerShell
type windowsNotifier struct{}

func (n *windowsNotifier) Notify(title, body string) error {
	script := fmt.Sprintf(`
		Add-Type -AssemblyName System.Windows.Forms
		$balloon = New-Object System.Windows.Forms.NotifyIcon
		$balloon.Icon = [System.Drawing.SystemIcons]::Information
		$balloon.BalloonTipIcon = 'Info'
		$balloon.BalloonTipTitle = '%s'
		$balloon.BalloonTipText = '%s'
		$balloon.Visible = $true
		$balloon.ShowBalloonTip(5000)
	`, title, body)

	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	if err := cmd.Run(); err != nil {
		slog.Debug("Windows notification failed", "error", err)
		return err
	}
	return nil
}

// nullNotifier is a no-op notifier for unsupported platforms
type nullNotifier struct{}

func (n *nullNotifier) Notify(title, body string) error {
	slog.Debug("notifications not supported on this platform",
		"title", title,
		"body", body,
	)
	return nil
}

// NotificationService manages notification sending for the daemon
type NotificationService struct {
	notifier Notifier
	enabled  bool
}

// NewNotificationService creates a new notification service
func NewNotificationService(enabled bool) *NotificationService {
	return &NotificationService{
		notifier: NewNotifier(),
		enabled:  enabled,
	}
}

// Notify sends a notification if enabled
func (s *NotificationService) Notify(title, body string) error {
	if !s.enabled {
		return nil
	}
	return s.notifier.Notify(title, body)
}

// NotifySignalReceived reports that a peer put this display to sleep
func (s *NotificationService) NotifySignalReceived() error {
	return s.Notify(
		"drowse - Display Sleeping",
		"A peer display turned on; sleeping this one.",
	)
}

// NotifyPeerDiscovered reports a newly discovered peer listener
func (s *NotificationService) NotifyPeerDiscovered(addr string) error {
	return s.Notify(
		"drowse - Peer Found",
		fmt.Sprintf("Discovered peer listener at %s.", addr),
	)
}
