package eventbus

import (
	"context"

	"github.com/kozaktomas/smartlock-gate/internal/eventlog"
)

// AccessSubject returns the subject access events of a terminal go to.
func AccessSubject(prefix, terminalID string) string {
	return SubjectToken(prefix) + "." + SubjectToken(terminalID) + ".access"
}

// WildcardSubject matches access events of every terminal under prefix.
func WildcardSubject(prefix string) string {
	return SubjectToken(prefix) + ".*.access"
}

// Sink forwards event log entries to a Publisher.
type Sink struct {
	pub    Publisher
	prefix string
}

func NewSink(pub Publisher, prefix string) *Sink {
	return &Sink{pub: pub, prefix: prefix}
}

// Record publishes e on <prefix>.<terminal>.access.
func (s *Sink) Record(ctx context.Context, e eventlog.Event) error {
	return s.pub.Publish(ctx, AccessSubject(s.prefix, e.TerminalID), e)
}
