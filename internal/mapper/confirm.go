package mapper

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"schedex/internal/port"
)

// AcceptAll confirms every gray-zone candidate.
type AcceptAll struct{}

func (AcceptAll) Confirm(context.Context, port.GrayZoneCandidate) bool { return true }

// RejectAll rejects every gray-zone candidate.
type RejectAll struct{}

func (RejectAll) Confirm(context.Context, port.GrayZoneCandidate) bool { return false }

// Prompt asks an operator on a line-oriented terminal. Anything other than
// "y" or "yes" rejects; so does a read error or EOF.
type Prompt struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewPrompt creates a Prompt reading answers from in and writing questions to out.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

func (p *Prompt) Confirm(_ context.Context, c port.GrayZoneCandidate) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, _ = fmt.Fprintf(p.out, "[%s] map column %q to %s.%s (confidence %.2f)? [y/N] ",
		c.SheetName, c.Header, c.EntityType, c.Field, c.Confidence)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// ConfirmerForPolicy returns the batch confirmer for a policy name:
// "accept" or "reject". Unknown names reject.
func ConfirmerForPolicy(policy string) port.Confirmer {
	if strings.EqualFold(policy, "accept") {
		return AcceptAll{}
	}
	return RejectAll{}
}
