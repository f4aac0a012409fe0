package watch

import (
	"strings"
	"time"
)

const pulseWidth = 5

// Pulse lights up when new deliveries arrive and fades over ten seconds.
type Pulse struct {
	level    int
	lastSeen time.Time
}

// Hit records new deliveries at now.
func (p *Pulse) Hit(now time.Time) {
	p.level = pulseWidth
	p.lastSeen = now
}

// Decay dims the pulse by one step per two seconds of quiet.
func (p *Pulse) Decay(now time.Time) {
	if p.level == 0 {
		return
	}
	level := pulseWidth - int(now.Sub(p.lastSeen)/(2*time.Second))
	if level < 0 {
		level = 0
	}
	p.level = level
}

func (p Pulse) Level() int { return p.level }

func (p Pulse) LastSeen() time.Time { return p.lastSeen }

func (p Pulse) Render(theme Theme) string {
	var b strings.Builder
	for i := range pulseWidth {
		if i < p.level {
			b.WriteString(theme.PulseActive.Render("●"))
		} else {
			b.WriteString(theme.PulseInactive.Render("○"))
		}
	}
	return b.String()
}
