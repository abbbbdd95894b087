package kinds

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
)

const (
	Activity      = "dds-activity"
	FileVersion   = "dds-fileversion"
	User          = "dds-user"
	SoftwareAgent = "dds-softwareagent"
)

// KindTagger is implemented by types whose kind depends on the instance,
// such as relations whose kind comes from their variant.
type KindTagger interface {
	KindTag() string
}

// Registry maps kind tags to the Go types they name. It is populated at
// start up and only read afterwards.
type Registry struct {
	mu          sync.RWMutex
	byTag       map[string]reflect.Type
	byType      map[reflect.Type]string
	entityKinds map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{
		byTag:       make(map[string]reflect.Type),
		byType:      make(map[reflect.Type]string),
		entityKinds: make(map[string]bool),
	}
}

// Register associates tag with the type of sample.
func (r *Registry) Register(tag string, sample any) error {
	return r.register(tag, sample, false)
}

// RegisterEntity registers a kind that is mirrored as a graph node.
func (r *Registry) RegisterEntity(tag string, sample any) error {
	return r.register(tag, sample, true)
}

func (r *Registry) register(tag string, sample any, entity bool) error {
	if tag == "" || sample == nil {
		return fmt.Errorf("Registry.Register - tag and sample are required")
	}

	t := indirect(reflect.TypeOf(sample))

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byTag[tag]; ok && existing != t {
		return fmt.Errorf("Registry.Register - kind %s already registered for %s", tag, existing)
	}

	r.byTag[tag] = t
	if _, ok := r.byType[t]; !ok {
		r.byType[t] = tag
	}
	if entity {
		r.entityKinds[tag] = true
	}
	return nil
}

func (r *Registry) MustRegister(tag string, sample any) {
	if err := r.Register(tag, sample); err != nil {
		panic(err)
	}
}

func (r *Registry) MustRegisterEntity(tag string, sample any) {
	if err := r.RegisterEntity(tag, sample); err != nil {
		panic(err)
	}
}

// Resolve returns the type registered under tag.
func (r *Registry) Resolve(tag string) (reflect.Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byTag[tag]
	if !ok {
		return nil, fmt.Errorf("Registry.Resolve - %q: %w", tag, domain.ErrUnknownKind)
	}
	return t, nil
}

// KindOf is the inverse of Resolve.
func (r *Registry) KindOf(v any) (string, error) {
	if tagger, ok := v.(KindTagger); ok {
		tag := tagger.KindTag()
		if _, err := r.Resolve(tag); err != nil {
			return "", err
		}
		return tag, nil
	}

	if v == nil {
		return "", fmt.Errorf("Registry.KindOf - nil value: %w", domain.ErrUnknownKind)
	}

	t := indirect(reflect.TypeOf(v))

	r.mu.RLock()
	defer r.mu.RUnlock()

	tag, ok := r.byType[t]
	if !ok {
		return "", fmt.Errorf("Registry.KindOf - %s: %w", t, domain.ErrUnknownKind)
	}
	return tag, nil
}

// IsEntityKind reports whether tag names a graph node kind.
func (r *Registry) IsEntityKind(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entityKinds[tag]
}

// Label is the graph label used for nodes of this kind, the Go type name.
func (r *Registry) Label(tag string) (string, error) {
	t, err := r.Resolve(tag)
	if err != nil {
		return "", err
	}
	return t.Name(), nil
}

// EntityKinds lists node kinds in a stable order.
func (r *Registry) EntityKinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.entityKinds))
	for tag := range r.entityKinds {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// Default é a tabela global do processo.
var Default = NewRegistry()

func init() {
	Default.MustRegisterEntity(Activity, entities.Activity{})
	Default.MustRegisterEntity(FileVersion, entities.FileVersion{})
	Default.MustRegisterEntity(User, entities.User{})
	Default.MustRegisterEntity(SoftwareAgent, entities.SoftwareAgent{})
}

func Resolve(tag string) (reflect.Type, error) { return Default.Resolve(tag) }

func KindOf(v any) (string, error) { return Default.KindOf(v) }

func IsEntityKind(tag string) bool { return Default.IsEntityKind(tag) }

func Label(tag string) (string, error) { return Default.Label(tag) }
