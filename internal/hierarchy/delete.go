package hierarchy

import "fmt"

// CheckDelete applies the server's deletion rules locally. A network with
// children needs force, and force is refused for a root whose children are
// all leaves.
func (f *Forest) CheckDelete(id int, force bool) error {
	i, err := f.index(id)
	if err != nil {
		return err
	}
	n := f.nodes[i]
	if len(n.children) == 0 {
		return nil
	}
	if !force {
		return fmt.Errorf("%w: %s has %d children", ErrForbiddenDelete, n.prefix, len(n.children))
	}
	if n.parent != noParent {
		return nil
	}
	for _, c := range n.children {
		if len(f.nodes[c].children) > 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrForbiddenForceDelete, n.prefix)
}
