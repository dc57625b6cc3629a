package queue

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EntryPath is the path fragment of an entry below its queue root.
type EntryPath struct {
	// Bucket is the yyyy/MM/dd/HH/mm time bucket.
	Bucket string
	// Disambiguator is "<token>_<counter>".
	Disambiguator string
}

func (p EntryPath) String() string {
	return p.Bucket + "/" + p.Disambiguator
}

// ParseEntryPath splits a fragment produced by IDGenerator.
func ParseEntryPath(fragment string) (EntryPath, bool) {
	idx := strings.LastIndexByte(fragment, '/')
	if idx <= 0 || idx == len(fragment)-1 {
		return EntryPath{}, false
	}
	bucket := fragment[:idx]
	if strings.Count(bucket, "/") != 4 {
		return EntryPath{}, false
	}
	return EntryPath{Bucket: bucket, Disambiguator: fragment[idx+1:]}, true
}

// TimePath renders t as a zero padded yyyy/MM/dd/HH/mm bucket in t's location.
func TimePath(t time.Time) string {
	return fmt.Sprintf("%04d/%02d/%02d/%02d/%02d", t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute())
}

// IDGenerator hands out unique entry paths. It is safe for concurrent use.
type IDGenerator struct {
	clock    func() time.Time
	token    func() string
	location *time.Location
	counter  atomic.Uint64
}

// IDOption configures an IDGenerator.
type IDOption func(*IDGenerator)

// WithClock overrides the wall clock.
func WithClock(clock func() time.Time) IDOption {
	return func(g *IDGenerator) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// WithTokenSource overrides the random token source.
func WithTokenSource(token func() string) IDOption {
	return func(g *IDGenerator) {
		if token != nil {
			g.token = token
		}
	}
}

// WithLocation sets the time zone buckets are computed in.
func WithLocation(loc *time.Location) IDOption {
	return func(g *IDGenerator) {
		if loc != nil {
			g.location = loc
		}
	}
}

// NewIDGenerator returns a generator using the local clock and time zone
// and random v4 UUID tokens unless overridden.
func NewIDGenerator(opts ...IDOption) *IDGenerator {
	g := &IDGenerator{
		clock:    time.Now,
		token:    randomToken,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NowBucket returns the bucket of the current instant.
func (g *IDGenerator) NowBucket() string {
	return TimePath(g.clock().In(g.location))
}

// NewEntryPath returns a fresh entry path in the current bucket.
func (g *IDGenerator) NewEntryPath() EntryPath {
	n := g.counter.Add(1) - 1
	return EntryPath{
		Bucket:        g.NowBucket(),
		Disambiguator: g.token() + "_" + strconv.FormatUint(n, 10),
	}
}

// NewEntryID returns a fresh encoded entry id.
func (g *IDGenerator) NewEntryID() string {
	id, _ := EncodeID(g.NewEntryPath().String())
	return id
}
