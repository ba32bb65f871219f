package permissions

import (
	"sort"

	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
)

// Index maps a permission to the API methods it gates. Methods keep the order in
// which they were first added.
type Index struct {
	methods map[string][]models.MethodSignature
	keys    map[string]map[string]struct{}
}

// NewIndex creates an empty index
func NewIndex() *Index {
	return &Index{
		methods: make(map[string][]models.MethodSignature),
		keys:    make(map[string]map[string]struct{}),
	}
}

// Add records that permission gates method. It returns false when the pair is already present.
func (i *Index) Add(permission string, method models.MethodSignature) bool {
	keys, ok := i.keys[permission]
	if !ok {
		keys = make(map[string]struct{})
		i.keys[permission] = keys
	}
	key := method.Key()
	if _, dup := keys[key]; dup {
		return false
	}
	keys[key] = struct{}{}
	i.methods[permission] = append(i.methods[permission], method)
	return true
}

// Methods returns the methods gated by permission in insertion order
func (i *Index) Methods(permission string) []models.MethodSignature {
	return append([]models.MethodSignature(nil), i.methods[permission]...)
}

// Permissions returns every permission name, sorted
func (i *Index) Permissions() []string {
	out := make([]string, 0, len(i.methods))
	for p := range i.methods {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// AllMethods returns every gated method once, in permission order then insertion order
func (i *Index) AllMethods() []models.MethodSignature {
	seen := make(map[string]struct{})
	var out []models.MethodSignature
	for _, p := range i.Permissions() {
		for _, m := range i.methods[p] {
			if _, dup := seen[m.Key()]; dup {
				continue
			}
			seen[m.Key()] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of permissions
func (i *Index) Len() int {
	return len(i.methods)
}

// Pairs returns the number of permission to method associations
func (i *Index) Pairs() int {
	n := 0
	for _, methods := range i.methods {
		n += len(methods)
	}
	return n
}
