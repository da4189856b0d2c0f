package kml

// Node is one placemark paired with the folder path active at its position
// in the document tree. FolderPath is ordered root-first and is owned by the
// receiver; Walk never mutates a slice after handing it out.
type Node struct {
	Placemark  Placemark
	FolderPath []string
}

// Walk flattens the document into pre-order depth-first sequence: top-level
// placemarks first, then each folder's placemarks before its subfolders.
// Traversal uses an explicit frame stack so arbitrarily deep folder nesting
// cannot exhaust the call stack.
func Walk(doc *Document) []Node {
	var out []Node

	for _, pm := range doc.Placemarks {
		out = append(out, Node{Placemark: pm})
	}

	type frame struct {
		folder Folder
		path   []string
	}

	// Seed in reverse so popping preserves document order.
	stack := make([]frame, 0, len(doc.Folders))
	for i := len(doc.Folders) - 1; i >= 0; i-- {
		stack = append(stack, frame{folder: doc.Folders[i]})
	}

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		path := make([]string, 0, len(fr.path)+1)
		path = append(path, fr.path...)
		path = append(path, fr.folder.Name)

		for _, pm := range fr.folder.Placemarks {
			out = append(out, Node{Placemark: pm, FolderPath: path})
		}

		for i := len(fr.folder.Folders) - 1; i >= 0; i-- {
			stack = append(stack, frame{folder: fr.folder.Folders[i], path: path})
		}
	}

	return out
}
