package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shaiso/agentflow/internal/domain"
)

func TestBuildGraph_Chain(t *testing.T) {
	meta := domain.Metadata{
		"a": {Enabled: true},
		"b": {Enabled: true, DependsOn: []string{"a"}},
		"c": {Enabled: true, DependsOn: []string{"b"}},
	}

	g, err := BuildGraph(meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.Size() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.Size())
	}
	if len(g.RootNodes) != 1 || g.RootNodes[0].ID != "a" {
		t.Errorf("expected root a, got %v", g.RootNodes)
	}
	if order := g.OrderIDs(); !reflect.DeepEqual(order, []string{"a", "b", "c"}) {
		t.Errorf("unexpected order: %v", order)
	}
}

func TestBuildGraph_Cycle(t *testing.T) {
	meta := domain.Metadata{
		"a": {Enabled: true, DependsOn: []string{"b"}},
		"b": {Enabled: true, DependsOn: []string{"a"}},
	}

	_, err := BuildGraph(meta)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}

	var cErr *CycleError
	if !errors.As(err, &cErr) {
		t.Fatalf("expected CycleError, got %T", err)
	}
	if !reflect.DeepEqual(cErr.Path, []string{"a", "b", "a"}) {
		t.Errorf("unexpected path: %v", cErr.Path)
	}
	if err.Error() != "circular dependency: a -> b -> a" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestBuildGraph_SelfCycle(t *testing.T) {
	meta := domain.Metadata{"a": {Enabled: true, DependsOn: []string{"a"}}}

	_, err := BuildGraph(meta)

	var cErr *CycleError
	if !errors.As(err, &cErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if !reflect.DeepEqual(cErr.Path, []string{"a", "a"}) {
		t.Errorf("unexpected path: %v", cErr.Path)
	}
}

func TestBuildGraph_MissingDependency(t *testing.T) {
	meta := domain.Metadata{"a": {Enabled: true, DependsOn: []string{"ghost"}}}

	if _, err := BuildGraph(meta); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("expected ErrMissingDependency, got %v", err)
	}
}

func TestGraph_Plan(t *testing.T) {
	// c зависит от a и b, b зависит от a: a выполняется один раз
	meta := domain.Metadata{
		"a": {Enabled: true},
		"b": {Enabled: true, DependsOn: []string{"a"}},
		"c": {Enabled: true, DependsOn: []string{"a", "b"}},
		"d": {Enabled: true},
	}

	g, err := BuildGraph(meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plan, err := g.Plan("c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(plan, []string{"a", "b", "c"}) {
		t.Errorf("unexpected plan: %v", plan)
	}

	if _, err := g.Plan("zzz"); !errors.Is(err, ErrUnknownUnit) {
		t.Errorf("expected ErrUnknownUnit, got %v", err)
	}
}
