package marshal

import (
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/roach88/relmap/internal/logging"
	"github.com/roach88/relmap/internal/schema"
)

// Cache memoizes plans by record type. Plans are generated outside the
// lock and published under it; the first published plan wins.
type Cache struct {
	reg   *schema.Registry
	log   *logrus.Entry
	mu    sync.RWMutex
	plans map[reflect.Type]*Plan
}

// NewCache creates a plan cache over reg. A nil log discards output.
func NewCache(reg *schema.Registry, log *logrus.Entry) *Cache {
	if log == nil {
		log = logging.Discard()
	}
	return &Cache{
		reg:   reg,
		log:   log,
		plans: make(map[reflect.Type]*Plan),
	}
}

// Registry returns the schema registry plans are generated from.
func (c *Cache) Registry() *schema.Registry {
	return c.reg
}

// Plan returns the plan of t, generating it on first use.
func (c *Cache) Plan(t reflect.Type) (*Plan, error) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	c.mu.RLock()
	p, ok := c.plans[t]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	s, err := c.reg.Of(t)
	if err != nil {
		return nil, err
	}
	generated, err := generate(c.reg, s)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing, ok := c.plans[t]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	c.plans[t] = generated
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"type":    t.String(),
		"columns": generated.width,
		"binds":   len(generated.binds),
	}).Debug("plan generated")

	return generated, nil
}

// PlanFor returns the plan of T.
func PlanFor[T any](c *Cache) (*Plan, error) {
	return c.Plan(reflect.TypeFor[T]())
}
