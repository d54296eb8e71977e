// ABOUTME: Graphviz rendering of a pipeline run
// ABOUTME: Draws deals, companies, contracts, and projects created during a run
package viz

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/harperreed/dealbridge/db"
	"github.com/harperreed/dealbridge/models"
)

type GraphGenerator struct {
	db *sql.DB
}

func NewGraphGenerator(database *sql.DB) *GraphGenerator {
	return &GraphGenerator{db: database}
}

// GenerateRunGraph returns the DOT source for a run: deal → company, deal → contract, and
// contract → project edges labelled with the project SKU. Skipped deals are drawn greyed out
// with their skip reason.
func (g *GraphGenerator) GenerateRunGraph(runID string) (string, error) {
	run, err := db.GetRun(g.db, runID)
	if err != nil {
		return "", err
	}
	if run == nil {
		return "", fmt.Errorf("run %s not found", runID)
	}

	deals, err := db.ListRunDeals(g.db, runID)
	if err != nil {
		return "", err
	}
	links, err := db.ListRunLinks(g.db, runID)
	if err != nil {
		return "", err
	}

	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetLabel(fmt.Sprintf("Run %s (%s)", run.ID, run.Status))
	graph.SetRankDir(cgraph.LRRank)

	dealNodes := make(map[string]*cgraph.Node)
	for _, deal := range deals {
		node, err := graph.CreateNodeByName("deal_" + deal.DealID)
		if err != nil {
			return "", fmt.Errorf("failed to create deal node: %w", err)
		}
		node.SetShape("diamond")
		node.SetStyle("filled")
		if deal.Outcome == models.OutcomeSkipped {
			node.SetLabel(fmt.Sprintf("%s\n(skipped: %s)", deal.DealName, deal.Reason))
			node.SetFillColor("lightgrey")
		} else {
			node.SetLabel(deal.DealName)
			node.SetFillColor("lightyellow")
		}
		dealNodes[deal.DealID] = node
	}

	contractNodes := make(map[string]*cgraph.Node)
	entityNode := func(link models.SyncLog) (*cgraph.Node, error) {
		node, err := graph.CreateNodeByName(link.EntityType + "_" + link.EntityID)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s node: %w", link.EntityType, err)
		}
		node.SetStyle("filled")
		switch link.EntityType {
		case models.EntityCompany:
			node.SetLabel(fmt.Sprintf("%s\n(Company)", link.EntityID))
			node.SetShape("box")
			node.SetFillColor("lightblue")
		case models.EntityContract:
			node.SetLabel(fmt.Sprintf("%s\n(Contract)", link.EntityID))
			node.SetShape("note")
			node.SetFillColor("lightgreen")
		case models.EntityProject:
			node.SetLabel(fmt.Sprintf("%s\n(Project)", link.EntityID))
			node.SetShape("ellipse")
			node.SetFillColor("white")
		}
		return node, nil
	}

	// Companies and contracts first so projects can hang off their contract.
	var projects []models.SyncLog
	contractOf := make(map[string]string)
	for _, link := range links {
		dealNode, ok := dealNodes[link.SourceID]
		if !ok {
			continue
		}
		switch link.EntityType {
		case models.EntityProject:
			projects = append(projects, link)
			continue
		case models.EntityContract:
			contractOf[link.SourceID] = link.EntityID
		}

		node, err := entityNode(link)
		if err != nil {
			return "", err
		}
		if link.EntityType == models.EntityContract {
			contractNodes[link.EntityID] = node
		}

		edge, err := graph.CreateEdgeByName(link.EntityType, dealNode, node)
		if err != nil {
			return "", fmt.Errorf("failed to create edge: %w", err)
		}
		edge.SetLabel(link.EntityType)
	}

	for _, link := range projects {
		parent := contractNodes[contractOf[link.SourceID]]
		if parent == nil {
			parent = dealNodes[link.SourceID]
		}

		node, err := entityNode(link)
		if err != nil {
			return "", err
		}
		edge, err := graph.CreateEdgeByName("project", parent, node)
		if err != nil {
			return "", fmt.Errorf("failed to create edge: %w", err)
		}
		edge.SetLabel(link.Metadata)
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}
