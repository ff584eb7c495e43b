// Package traversal implements the ambitious follow traversal: starting from a seed account it follows
// eligible followers and then explores their followers, depth first or breadth first, bounded by an
// optional maximum depth and an optional number of followers fetched per node.
package traversal
