package formatter

import (
	"github.com/xlab/treeprint"

	"github.com/oakwood-commons/jvx/internal/flatten"
)

// FormatAsTree renders rows as an ASCII tree. Expanded objects and arrays
// become branches; collapsed ones show their item count inline.
func FormatAsTree(rows []flatten.Row, opts Options) string {
	if len(rows) == 0 {
		return ""
	}

	root := treeprint.NewWithRoot(treeLabel(rows[0], opts))
	// branches[level] is the most recent branch opened at that level.
	branches := []treeprint.Tree{root}
	for _, r := range rows[1:] {
		if r.Level < 1 || r.Level > len(branches) {
			continue
		}
		parent := branches[r.Level-1]
		if r.IsExpandable && r.Expanded && r.Value.Len() > 0 {
			branch := parent.AddBranch(r.Key)
			branches = append(branches[:r.Level], branch)
			continue
		}
		parent.AddNode(treeLabel(r, opts))
	}
	return root.String()
}

func treeLabel(r flatten.Row, opts Options) string {
	key := DisplayKey(r)
	if r.Path == flatten.RootPath && r.IsExpandable && r.Expanded && r.Value.Len() > 0 {
		return key
	}
	if opts.NoValues {
		return key
	}
	return key + ": " + Truncate(ValueText(r), opts.MaxValueWidth)
}
