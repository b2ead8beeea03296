package propertyobject

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

// propertyPath is a parsed property name: "head[index].rest".
type propertyPath struct {
	head     string
	rest     string
	index    int
	hasIndex bool
}

func parsePath(name string) (propertyPath, error) {
	if name == "" {
		return propertyPath{}, fmt.Errorf("%w: property name", status.ErrArgumentNull)
	}
	var pp propertyPath
	head := name
	if i := strings.IndexByte(name, '.'); i >= 0 {
		head, pp.rest = name[:i], name[i+1:]
		if head == "" || pp.rest == "" {
			return propertyPath{}, fmt.Errorf("%w: malformed property path %q", status.ErrInvalidParameter, name)
		}
	}

	open := strings.IndexByte(head, '[')
	switch {
	case open < 0:
		if strings.IndexByte(head, ']') >= 0 {
			return propertyPath{}, fmt.Errorf("%w: malformed index in %q", status.ErrInvalidParameter, name)
		}
	case open == 0 || !strings.HasSuffix(head, "]"):
		return propertyPath{}, fmt.Errorf("%w: malformed index in %q", status.ErrInvalidParameter, name)
	default:
		idx, err := strconv.Atoi(head[open+1 : len(head)-1])
		if err != nil || idx < 0 {
			return propertyPath{}, fmt.Errorf("%w: malformed index in %q", status.ErrInvalidParameter, name)
		}
		if pp.rest != "" {
			return propertyPath{}, fmt.Errorf("%w: index on intermediate segment of %q", status.ErrInvalidParameter, name)
		}
		pp.index, pp.hasIndex = idx, true
		head = head[:open]
	}
	pp.head = head
	return pp, nil
}

// withIndex re-appends the index suffix to name.
func (pp propertyPath) withIndex(name string) string {
	if !pp.hasIndex {
		return name
	}
	return name + "[" + strconv.Itoa(pp.index) + "]"
}

func validPropertyName(name string) bool {
	return name != "" && !strings.ContainsAny(name, ".[]")
}
