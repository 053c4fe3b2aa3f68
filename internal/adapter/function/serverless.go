package function

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/apperr"
	"gopkg.in/yaml.v3"
)

// LoadServiceDefinition reads and parses a serverless-style service file.
func LoadServiceDefinition(path string) (*entity.ServiceDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.NewNotFoundErr(fmt.Sprintf("service file %q", path), err)
	}
	return ParseServiceDefinition(raw)
}

// ParseServiceDefinition decodes the service document. Functions and their
// events keep the order they are declared in. Only provider.region,
// provider.environment and functions.<name>.{handler,environment,timeout,events}
// are read; everything else is ignored.
func ParseServiceDefinition(raw []byte) (*entity.ServiceDefinition, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, apperr.NewFunctionDefinitionErr("service file is not valid yaml", err)
	}
	if len(doc.Content) == 0 {
		return nil, apperr.NewFunctionDefinitionErr("service file is empty", nil)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, apperr.NewFunctionDefinitionErr("service file must be a mapping", nil)
	}

	svc := &entity.ServiceDefinition{}
	if n := lookup(root, "service"); n != nil {
		svc.Service = scalarOrName(n)
	}
	if provider := lookup(root, "provider"); provider != nil {
		if n := lookup(provider, "region"); n != nil {
			svc.Region = n.Value
		}
		env, err := scalarMap(lookup(provider, "environment"))
		if err != nil {
			return nil, apperr.NewFunctionDefinitionErr("provider.environment", err)
		}
		svc.ProviderEnvironment = env
	}

	functions := lookup(root, "functions")
	if functions == nil {
		return svc, nil
	}
	if functions.Kind != yaml.MappingNode {
		return nil, apperr.NewFunctionDefinitionErr("functions must be a mapping", nil)
	}
	for i := 0; i+1 < len(functions.Content); i += 2 {
		name := functions.Content[i].Value
		fn, err := parseFunction(name, functions.Content[i+1])
		if err != nil {
			return nil, err
		}
		svc.Functions = append(svc.Functions, fn)
	}
	return svc, nil
}

func parseFunction(name string, node *yaml.Node) (entity.FunctionDefinition, error) {
	fn := entity.FunctionDefinition{Name: name}
	if node.Kind != yaml.MappingNode {
		return fn, apperr.NewFunctionDefinitionErr(fmt.Sprintf("function %q must be a mapping", name), nil)
	}
	if n := lookup(node, "handler"); n != nil {
		fn.Handler = n.Value
	}
	if n := lookup(node, "timeout"); n != nil {
		secs, err := strconv.ParseFloat(n.Value, 64)
		if err != nil || secs < 0 {
			return fn, apperr.NewFunctionDefinitionErr(fmt.Sprintf("function %q has an invalid timeout %q", name, n.Value), err)
		}
		fn.Timeout = time.Duration(secs * float64(time.Second))
	}
	env, err := scalarMap(lookup(node, "environment"))
	if err != nil {
		return fn, apperr.NewFunctionDefinitionErr(fmt.Sprintf("function %q environment", name), err)
	}
	fn.Environment = env

	events := lookup(node, "events")
	if events == nil {
		return fn, nil
	}
	if events.Kind != yaml.SequenceNode {
		return fn, apperr.NewFunctionDefinitionErr(fmt.Sprintf("function %q events must be a list", name), nil)
	}
	for _, ev := range events.Content {
		if ev.Kind != yaml.MappingNode || len(ev.Content) < 2 {
			continue
		}
		kind := ev.Content[0].Value
		if kind != string(entity.SubscriptionStream) {
			fn.Events = append(fn.Events, entity.Subscription{Kind: entity.SubscriptionKind(kind)})
			continue
		}
		sub, err := parseStream(name, ev.Content[1])
		if err != nil {
			return fn, err
		}
		fn.Events = append(fn.Events, sub)
	}
	return fn, nil
}

// parseStream accepts both `stream: <arn>` and `stream: {arn: <arn>, enabled: <bool>}`.
func parseStream(function string, node *yaml.Node) (entity.Subscription, error) {
	sub := entity.Subscription{Kind: entity.SubscriptionStream}
	switch node.Kind {
	case yaml.ScalarNode:
		sub.Arn = node.Value
	case yaml.MappingNode:
		if n := lookup(node, "arn"); n != nil {
			if n.Kind != yaml.ScalarNode {
				return sub, apperr.NewFunctionDefinitionErr(fmt.Sprintf("function %q has a stream arn that is not a plain string", function), nil)
			}
			sub.Arn = n.Value
		}
		if n := lookup(node, "enabled"); n != nil {
			enabled, err := strconv.ParseBool(n.Value)
			if err != nil {
				return sub, apperr.NewFunctionDefinitionErr(fmt.Sprintf("function %q has an invalid stream enabled flag %q", function, n.Value), err)
			}
			sub.Disabled = !enabled
		}
	default:
		return sub, apperr.NewFunctionDefinitionErr(fmt.Sprintf("function %q has an invalid stream event", function), nil)
	}
	return sub, nil
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func scalarOrName(n *yaml.Node) string {
	if n.Kind == yaml.MappingNode {
		if name := lookup(n, "name"); name != nil {
			return name.Value
		}
		return ""
	}
	return n.Value
}

func scalarMap(n *yaml.Node) (map[string]string, error) {
	if n == nil || n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping at line %d", n.Line)
	}
	out := make(map[string]string, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("value of %q at line %d is not a scalar", k.Value, v.Line)
		}
		out[k.Value] = v.Value
	}
	return out, nil
}
