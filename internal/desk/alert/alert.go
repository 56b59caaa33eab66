// Package alert shows short-lived notices to the person at the desk.
package alert

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

// Style picks the colour and icon of an alert.
type Style int

const (
	StyleNeutral Style = iota
	StyleInfo
	StyleSuccess
	StyleHighlight
)

func (s Style) String() string {
	switch s {
	case StyleInfo:
		return "info"
	case StyleSuccess:
		return "success"
	case StyleHighlight:
		return "highlight"
	default:
		return "neutral"
	}
}

// DefaultDuration applies when an alert does not set its own.
const DefaultDuration = 4 * time.Second

// Alert is one transient on-screen notice.
type Alert struct {
	Style    Style
	Title    string
	Body     string
	Duration time.Duration
	// Sound asks for the audio cue; the alert is shown whether or not it plays.
	Sound bool
}

// Sink displays alerts. Show must not block on the display.
type Sink interface {
	Show(a Alert)
}

// SoundPlayer plays the audio cue.
type SoundPlayer interface {
	Play() error
}

// Bell rings the terminal bell.
type Bell struct {
	W io.Writer
}

// Play writes the terminal bell.
func (b Bell) Play() error {
	_, err := io.WriteString(b.W, "\a")
	return err
}

var (
	badgeStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	badges     = map[Style]lipgloss.Style{
		StyleNeutral:   badgeStyle.Foreground(lipgloss.Color("#F9FAFB")).Background(lipgloss.Color("#4B5563")),
		StyleInfo:      badgeStyle.Foreground(lipgloss.Color("#F9FAFB")).Background(lipgloss.Color("#2563EB")),
		StyleSuccess:   badgeStyle.Foreground(lipgloss.Color("#F9FAFB")).Background(lipgloss.Color("#059669")),
		StyleHighlight: badgeStyle.Foreground(lipgloss.Color("#111827")).Background(lipgloss.Color("#FBBF24")),
	}
	titleStyle = lipgloss.NewStyle().Bold(true)
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

// Render formats an alert as one terminal line.
func Render(a Alert, at time.Time) string {
	badge := badges[a.Style].Render(a.Style.String())
	line := lipgloss.JoinHorizontal(lipgloss.Top,
		timeStyle.Render(at.Format("15:04:05")), " ", badge, " ", titleStyle.Render(a.Title))
	if a.Body != "" {
		line += " " + a.Body
	}
	return line
}

// TerminalSink prints alerts as styled lines. Sound failures are logged and
// never hold up the alert.
type TerminalSink struct {
	mu     sync.Mutex
	out    io.Writer
	sound  SoundPlayer
	logger zerolog.Logger
	now    func() time.Time
}

// NewTerminalSink renders alerts to out and plays sound when it is non-nil.
func NewTerminalSink(out io.Writer, sound SoundPlayer, logger zerolog.Logger) *TerminalSink {
	return &TerminalSink{out: out, sound: sound, logger: logger, now: time.Now}
}

func (s *TerminalSink) Show(a Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintln(s.out, Render(a, s.now())); err != nil {
		s.logger.Debug().Err(err).Msg("alert not written")
	}
	if a.Sound && s.sound != nil {
		if err := s.sound.Play(); err != nil {
			s.logger.Debug().Err(err).Msg("audio cue failed")
		}
	}
}

// Recorder keeps every alert in memory.
type Recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

func (r *Recorder) Show(a Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

// Alerts returns a copy of what was shown, oldest first.
func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}
