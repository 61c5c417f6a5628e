package game

import (
	"strings"
	"unicode/utf8"
)

const (
	minNameLength = 3
	maxNameLength = 20
)

// ValidateDisplayName trims name and checks its length.
func ValidateDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < minNameLength || n > maxNameLength {
		return "", ErrInvalidDisplayName
	}
	return name, nil
}

// roster keeps players in join order, which is also turn order.
type roster struct {
	players []*Player
}

func (r *roster) len() int { return len(r.players) }

func (r *roster) index(id string) int {
	for i, p := range r.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *roster) get(id string) *Player {
	if i := r.index(id); i >= 0 {
		return r.players[i]
	}
	return nil
}

func (r *roster) nameTaken(name string) bool {
	for _, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func (r *roster) add(p *Player) { r.players = append(r.players, p) }

func (r *roster) removeAt(i int) *Player {
	p := r.players[i]
	r.players = append(r.players[:i], r.players[i+1:]...)
	return p
}

// alive returns the indices of players with lives left who are still connected.
func (r *roster) alive() []int {
	var out []int
	for i, p := range r.players {
		if p.alive() {
			out = append(out, i)
		}
	}
	return out
}

// next scans forward from from, wrapping, to the next alive player.
func (r *roster) next(from int) int {
	n := len(r.players)
	for i := 1; i <= n; i++ {
		j := (from + i) % n
		if r.players[j].alive() {
			return j
		}
	}
	return -1
}

func (r *roster) allReady() bool {
	for _, p := range r.players {
		if !p.Ready {
			return false
		}
	}
	return len(r.players) > 0
}

func (r *roster) copies() []Player {
	out := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p.clone())
	}
	return out
}
