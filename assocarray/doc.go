// Package assocarray reconstructs a kernel associative array (struct
// assoc_array) found in a foreign address space into a Script: an ordered
// list of build operations that recreates an equivalent tree elsewhere.
//
// An associative array is a 16-way trie. Each slot of an interior node holds
// a tagged word: the low two bits say whether the word is a leaf object, a
// pointer to another node, or a pointer to a shortcut. Decode classifies a
// word. Reconstruct walks the trie in slot order and emits the Script, which
// can be replayed in-process with Replay or rendered as C statements for the
// userspace reproducer helpers with RenderC.
//
// Shortcuts are not supported. A trie containing one cannot be reconstructed
// and Reconstruct fails with an UnsupportedVariantError.
package assocarray
