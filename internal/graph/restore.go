package graph

// RestoreNode inserts a node under its original id during snapshot load.
// Indexes are rebuilt from live nodes only; removed nodes are kept in the
// node table (edges may still reference them until compaction) but never
// indexed. The id counter is advanced so post-load allocations stay unique.
func (g *Graph) RestoreNode(n *Node) {
	g.nodes[n.ID] = n
	if n.ID > g.nextID {
		g.nextID = n.ID
	}
	if n.Removed {
		return
	}
	if n.Kind == KindFile {
		g.fileIndex[n.FilePath] = n.ID
	} else {
		g.indexSymbol(n)
	}
}
