package lir

import "candor/internal/hir"

// flattenBlocks walks fn's HIR blocks depth-first from the entry,
// emitting each block only once every predecessor has already been
// visited (loop headers are the exception: they emit on first visit,
// since their back-edge predecessor is by definition visited later).
// Successors are enqueued last-to-first so the natural DFS order
// respects fall-through: spec.md §4.5 step 1.
func flattenBlocks(hf *hir.Func) []*hir.Block {
	visited := make(map[hir.BlockID]bool, len(hf.Blocks))
	var order []*hir.Block

	var visit func(b *hir.Block)
	visit = func(b *hir.Block) {
		if visited[b.ID] {
			return
		}
		if !b.IsLoop {
			for _, p := range b.Preds {
				if !visited[p.ID] {
					return
				}
			}
		}
		visited[b.ID] = true
		order = append(order, b)
		for i := len(b.Succs) - 1; i >= 0; i-- {
			visit(b.Succs[i])
		}
	}
	visit(hf.Entry)

	// a block whose only unvisited predecessor is a forward edge that
	// never gets visited first (this grammar's if/while shapes do not
	// produce that, but break-heavy loops with many exit edges can)
	// still needs to appear; sweep any stragglers in block-id order.
	for _, b := range hf.Blocks {
		if !visited[b.ID] {
			visited[b.ID] = true
			order = append(order, b)
		}
	}
	return order
}
