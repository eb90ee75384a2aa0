// Package notify defines the user-facing notification and navigation
// contracts used by the planner, with terminal and in-memory
// implementations.
package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Kind is the notification severity.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Sink shows short messages to the user.
type Sink interface {
	Notify(message string, kind Kind)
}

// Router moves the user to another screen or command.
type Router interface {
	Navigate(path string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(message string, kind Kind)

func (f SinkFunc) Notify(message string, kind Kind) { f(message, kind) }

// RouterFunc adapts a function to Router.
type RouterFunc func(path string)

func (f RouterFunc) Navigate(path string) { f(path) }

// Discard drops every notification and navigation.
var Discard = discard{}

type discard struct{}

func (discard) Notify(string, Kind) {}
func (discard) Navigate(string)     {}

// Message is one recorded notification.
type Message struct {
	Text string
	Kind Kind
}

// Recorder keeps notifications and navigations in memory. The MCP server
// drains it into tool results; tests assert on it.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	paths    []string
}

func (r *Recorder) Notify(message string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Text: message, Kind: kind})
}

func (r *Recorder) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Paths returns a copy of the recorded navigations.
func (r *Recorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// Drain returns and clears the recorded notifications.
func (r *Recorder) Drain() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.messages
	r.messages = nil
	return out
}

// Count returns how many notifications of kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// Terminal prints notifications to a writer, usually stderr.
type Terminal struct {
	Out io.Writer
}

func (t Terminal) Notify(message string, kind Kind) {
	switch kind {
	case KindError:
		fmt.Fprintln(t.Out, errorStyle.Render("❌ "+message))
	default:
		fmt.Fprintln(t.Out, successStyle.Render("✅ "+message))
	}
}

// CLIRouter maps navigation paths to command hints. There are no screens in
// a CLI, so navigating means telling the user what to run next.
type CLIRouter struct {
	Out io.Writer
}

func (r CLIRouter) Navigate(path string) {
	switch path {
	case "/login":
		fmt.Fprintln(r.Out, hintStyle.Render("Session expired. Run 'agenda setup login' to sign in again."))
	default:
		if id, ok := activityEditID(path); ok {
			fmt.Fprintln(r.Out, hintStyle.Render("Run 'agenda activity update "+id+"' to edit this activity."))
			return
		}
		fmt.Fprintln(r.Out, hintStyle.Render("→ "+path))
	}
}

// activityEditID extracts the id from /activities/{id}/edit.
func activityEditID(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, "/activities/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/edit")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
