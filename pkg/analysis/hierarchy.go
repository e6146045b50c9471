package analysis

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Sumatoshi-tech/jarfang/pkg/classinfo"
)

// JavaLangObject is the root of every class hierarchy.
const JavaLangObject = "java/lang/Object"

// objectMethods are the overridable methods of java.lang.Object.
var objectMethods = []classinfo.Method{
	{Name: "equals", Descriptor: "(Ljava/lang/Object;)Z"},
	{Name: "hashCode", Descriptor: "()I"},
	{Name: "toString", Descriptor: "()Ljava/lang/String;"},
	{Name: "clone", Descriptor: "()Ljava/lang/Object;"},
	{Name: "finalize", Descriptor: "()V"},
}

// Hierarchy indexes the classes of one archive by internal name. When two
// classes share a name the later one wins.
type Hierarchy struct {
	classes []classinfo.ClassInfo
	byName  map[string]*classinfo.ClassInfo
}

// NewHierarchy indexes classes. The slice is retained, not copied.
func NewHierarchy(classes []classinfo.ClassInfo) *Hierarchy {
	h := &Hierarchy{
		classes: classes,
		byName:  make(map[string]*classinfo.ClassInfo, len(classes)),
	}

	for i := range classes {
		h.byName[classes[i].Name] = &classes[i]
	}

	return h
}

// Classes returns the indexed classes in input order, duplicates included.
func (h *Hierarchy) Classes() []classinfo.ClassInfo {
	return h.classes
}

// Depth is 1 plus the number of superclass links followed before reaching
// java/lang/Object or no superclass. A superclass outside the archive
// counts as one link and ends the walk. A link back to a class already on
// the chain ends the walk without being counted.
func (h *Hierarchy) Depth(c *classinfo.ClassInfo) int {
	depth := 1
	seen := map[string]bool{c.Name: true}

	for current := c.SuperName; current != "" && current != JavaLangObject; {
		if seen[current] {
			break
		}

		depth++
		seen[current] = true

		super, ok := h.byName[current]
		if !ok {
			break
		}

		current = super.SuperName
	}

	return depth
}

// InheritedMethods is the set of methods c can override: the Object methods,
// the non-initializer methods of its superclass chain and the methods of
// every interface reachable from c or its superclasses.
func (h *Hierarchy) InheritedMethods(c *classinfo.ClassInfo) mapset.Set[classinfo.Method] {
	result := mapset.NewThreadUnsafeSet(objectMethods...)
	visitedInterfaces := mapset.NewThreadUnsafeSet[string]()

	h.collectSuper(c.SuperName, result, mapset.NewThreadUnsafeSet(c.Name), visitedInterfaces)

	for _, iface := range c.Interfaces {
		h.collectInterface(iface, result, visitedInterfaces)
	}

	return result
}

// OverriddenCount counts methods of c, initializers excluded, that appear in
// InheritedMethods(c).
func (h *Hierarchy) OverriddenCount(c *classinfo.ClassInfo) int {
	parents := h.InheritedMethods(c)
	count := 0

	for _, m := range c.Methods {
		if m.IsConstructor() || m.IsStaticInitializer() {
			continue
		}

		if parents.Contains(m) {
			count++
		}
	}

	return count
}

func (h *Hierarchy) collectSuper(name string, result mapset.Set[classinfo.Method], visited, ifaces mapset.Set[string]) {
	for name != "" && name != JavaLangObject && visited.Add(name) {
		super, ok := h.byName[name]
		if !ok {
			return
		}

		for _, m := range super.Methods {
			if !m.IsConstructor() && !m.IsStaticInitializer() {
				result.Add(m)
			}
		}

		for _, iface := range super.Interfaces {
			h.collectInterface(iface, result, ifaces)
		}

		name = super.SuperName
	}
}

func (h *Hierarchy) collectInterface(name string, result mapset.Set[classinfo.Method], visited mapset.Set[string]) {
	if name == "" || !visited.Add(name) {
		return
	}

	iface, ok := h.byName[name]
	if !ok {
		return
	}

	for _, m := range iface.Methods {
		if !m.IsStaticInitializer() {
			result.Add(m)
		}
	}

	for _, parent := range iface.Interfaces {
		h.collectInterface(parent, result, visited)
	}
}
