// Package ident issues the short identifiers shared by sessions and
// players, and generates display names for players who join without one.
package ident

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Generator produces candidate identifiers. The default draws from
// github.com/google/uuid.
type Generator interface {
	NewID() string
}

// UUIDGenerator emits the first segment of a random UUID.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// Pool hands out identifiers guaranteed unique for the process
// lifetime. Sessions and players draw from the same pool, so an ID can
// never refer to both.
type Pool struct {
	mu   sync.Mutex
	gen  Generator
	used map[string]struct{}
}

func NewPool(gen Generator) *Pool {
	if gen == nil {
		gen = UUIDGenerator{}
	}
	return &Pool{gen: gen, used: make(map[string]struct{})}
}

// Next returns a fresh identifier, regenerating on collision.
func (p *Pool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		id := p.gen.NewID()
		if _, taken := p.used[id]; taken {
			continue
		}
		p.used[id] = struct{}{}
		return id
	}
}

var (
	nameAdjectives = []string{
		"amber", "brisk", "clever", "daring", "eager", "fuzzy", "gentle",
		"happy", "ivory", "jolly", "keen", "lively", "mellow", "nimble",
		"plucky", "quiet", "rapid", "sunny", "tidy", "witty",
	}
	nameAnimals = []string{
		"badger", "crane", "dolphin", "falcon", "gecko", "heron", "ibis",
		"jackal", "koala", "lemur", "marmot", "newt", "otter", "panda",
		"quokka", "raven", "seal", "tapir", "vole", "wombat",
	}
)

// NameGenerator produces pseudo-random human-readable display names,
// e.g. "plucky otter 37".
type NameGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewNameGenerator() *NameGenerator {
	return &NameGenerator{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (g *NameGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%s %s %02d",
		nameAdjectives[g.rnd.Intn(len(nameAdjectives))],
		nameAnimals[g.rnd.Intn(len(nameAnimals))],
		g.rnd.Intn(100))
}
