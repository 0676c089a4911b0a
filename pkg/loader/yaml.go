package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/jvx/pkg/value"
)

const (
	maxYAMLDepth = 512
	// maxAliasNodes bounds how many nodes alias expansion may add on top of
	// the nodes written out in the source.
	maxAliasNodes = 1 << 20
)

var errYAMLExpansion = errors.New("YAML aliases expand too much")

// parseYAML decodes a single YAML document through yaml.Node so mapping keys
// keep their source order.
func parseYAML(input []byte) (value.Value, error) {
	dec := yaml.NewDecoder(bytes.NewReader(input))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return value.Value{}, ErrEmptyInput
		}
		return value.Value{}, err
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); err == nil {
		return value.Value{}, errors.New("multiple YAML documents are not supported")
	} else if !errors.Is(err, io.EOF) {
		return value.Value{}, err
	}
	c := &yamlConverter{budget: countYAMLNodes(&doc) + maxAliasNodes}
	return c.convert(&doc, 0)
}

// countYAMLNodes counts the nodes present in the source, not following
// aliases.
func countYAMLNodes(n *yaml.Node) int {
	total := 1
	for _, c := range n.Content {
		total += countYAMLNodes(c)
	}
	return total
}

// yamlConverter builds a value from a node tree. Every node built, including
// those reached through an alias, spends one unit of budget.
type yamlConverter struct {
	budget int
}

func (c *yamlConverter) convert(n *yaml.Node, depth int) (value.Value, error) {
	if depth > maxYAMLDepth {
		return value.Value{}, errors.New("YAML nesting too deep")
	}
	c.budget--
	if c.budget < 0 {
		return value.Value{}, errYAMLExpansion
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.Null(), nil
		}
		return c.convert(n.Content[0], depth+1)
	case yaml.MappingNode:
		members := make([]value.Member, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			key := keyNode.Value
			if keyNode.Kind != yaml.ScalarNode {
				kv, err := c.convert(keyNode, depth+1)
				if err != nil {
					return value.Value{}, err
				}
				key = kv.String()
			}
			v, err := c.convert(valNode, depth+1)
			if err != nil {
				return value.Value{}, fmt.Errorf("key %q: %w", key, err)
			}
			members = append(members, value.Member{Key: key, Value: v})
		}
		return value.Object(members...), nil
	case yaml.SequenceNode:
		elems := make([]value.Value, 0, len(n.Content))
		for _, child := range n.Content {
			v, err := c.convert(child, depth+1)
			if err != nil {
				return value.Value{}, err
			}
			elems = append(elems, v)
		}
		return value.Array(elems...), nil
	case yaml.AliasNode:
		if n.Alias == nil {
			return value.Null(), nil
		}
		return c.convert(n.Alias, depth+1)
	case yaml.ScalarNode:
		return fromYAMLScalar(n)
	}
	return value.Null(), nil
}

func fromYAMLScalar(n *yaml.Node) (value.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return value.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return value.Value{}, err
		}
		return value.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return value.Int(i), nil
		}
		var u uint64
		if err := n.Decode(&u); err != nil {
			return value.Value{}, err
		}
		return value.Number(fmt.Sprint(u)), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return value.Value{}, err
		}
		// .inf and .nan have no JSON spelling; keep the source text.
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return value.String(n.Value), nil
		}
		return value.Float(f), nil
	}
	return value.String(n.Value), nil
}
