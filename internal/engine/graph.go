package engine

import (
	"fmt"
	"sort"

	"github.com/shaiso/agentflow/internal/domain"
)

// Node — агент в графе зависимостей.
type Node struct {
	// ID — идентификатор агента.
	ID string

	// Enabled — флаг из метаданных.
	Enabled bool

	// InDegree — количество пререквизитов.
	InDegree int

	// DependsOn — пререквизиты в порядке объявления.
	DependsOn []*Node

	// Dependents — агенты, которые зависят от этого.
	Dependents []*Node
}

// Graph — граф зависимостей агентов, построенный по метаданным.
type Graph struct {
	// Nodes — все узлы графа (unitID → Node).
	Nodes map[string]*Node

	// RootNodes — агенты без пререквизитов.
	RootNodes []*Node

	// Order — топологический порядок: пререквизиты раньше зависимых.
	Order []*Node
}

// BuildGraph строит граф зависимостей из каталога метаданных.
//
// Возвращает ValidationError для ссылок на неописанных агентов
// и CycleError при обнаружении цикла.
func BuildGraph(meta domain.Metadata) (*Graph, error) {
	g := &Graph{
		Nodes:     make(map[string]*Node, len(meta)),
		RootNodes: make([]*Node, 0),
	}

	ids := make([]string, 0, len(meta))
	for id := range meta {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Первый проход: создаём все узлы
	for _, id := range ids {
		g.Nodes[id] = &Node{
			ID:         id,
			Enabled:    meta[id].Enabled,
			DependsOn:  make([]*Node, 0),
			Dependents: make([]*Node, 0),
		}
	}

	// Второй проход: связываем узлы по зависимостям
	for _, id := range ids {
		node := g.Nodes[id]
		for _, depID := range meta[id].DependsOn {
			dep, exists := g.Nodes[depID]
			if !exists {
				return nil, NewValidationError("", "dependsOn",
					fmt.Sprintf("unit %s depends on unknown unit: %s", id, depID), ErrMissingDependency)
			}
			g.addEdge(dep, node)
		}
	}

	for _, id := range ids {
		if g.Nodes[id].InDegree == 0 {
			g.RootNodes = append(g.RootNodes, g.Nodes[id])
		}
	}

	order, err := g.topologicalSort(ids)
	if err != nil {
		return nil, err
	}
	g.Order = order

	return g, nil
}

// addEdge добавляет ребро между узлами.
// Дополнительно проверяет на дубликаты, чтобы избежать двойного учета InDegree.
func (g *Graph) addEdge(from, to *Node) {
	for _, dep := range to.DependsOn {
		if dep.ID == from.ID {
			return
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
}

// topologicalSort выполняет топологическую сортировку (алгоритм Кана).
// При цикле возвращает CycleError с путём одного из циклов.
func (g *Graph) topologicalSort(ids []string) ([]*Node, error) {
	inDegree := make(map[string]int, len(g.Nodes))
	for id, node := range g.Nodes {
		inDegree[id] = node.InDegree
	}

	queue := make([]*Node, len(g.RootNodes))
	copy(queue, g.RootNodes)

	order := make([]*Node, 0, len(g.Nodes))

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, dependent := range node.Dependents {
			inDegree[dependent.ID]--
			if inDegree[dependent.ID] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		for _, id := range ids {
			if inDegree[id] > 0 {
				if path := g.findCycle(id); path != nil {
					return nil, NewCycleError(path)
				}
			}
		}
		return nil, ErrCyclicDependency
	}

	return order, nil
}

// findCycle ищет цикл, достижимый из start, обходя пререквизиты.
// Путь замыкается на повторно встреченном узле: [A, B, A].
func (g *Graph) findCycle(start string) []string {
	var (
		stack   []string
		onStack = make(map[string]bool)
		visited = make(map[string]bool)
		visit   func(n *Node) []string
	)

	visit = func(n *Node) []string {
		stack = append(stack, n.ID)
		onStack[n.ID] = true

		for _, dep := range n.DependsOn {
			if onStack[dep.ID] {
				for i, id := range stack {
					if id == dep.ID {
						return append(append([]string{}, stack[i:]...), dep.ID)
					}
				}
			}
			if visited[dep.ID] {
				continue
			}
			if path := visit(dep); path != nil {
				return path
			}
		}

		stack = stack[:len(stack)-1]
		onStack[n.ID] = false
		visited[n.ID] = true
		return nil
	}

	return visit(g.Nodes[start])
}

// Plan возвращает порядок выполнения агента: сначала пререквизиты
// (рекурсивно, в порядке объявления, каждый один раз), затем сам агент.
func (g *Graph) Plan(unitID string) ([]string, error) {
	root, ok := g.Nodes[unitID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUnit, unitID)
	}

	seen := make(map[string]bool)
	order := make([]string, 0)

	var walk func(n *Node)
	walk = func(n *Node) {
		if seen[n.ID] {
			return
		}
		seen[n.ID] = true
		for _, dep := range n.DependsOn {
			walk(dep)
		}
		order = append(order, n.ID)
	}
	walk(root)

	return order, nil
}

// GetNode возвращает узел по ID.
func (g *Graph) GetNode(id string) *Node {
	return g.Nodes[id]
}

// Size возвращает количество узлов в графе.
func (g *Graph) Size() int {
	return len(g.Nodes)
}

// OrderIDs возвращает топологический порядок в виде ID.
func (g *Graph) OrderIDs() []string {
	ids := make([]string, len(g.Order))
	for i, n := range g.Order {
		ids[i] = n.ID
	}
	return ids
}
