package domain

// Folder is a product folder as the inventory system reports it.
// PathName holds the slash-joined names of its ancestors; empty for roots.
type Folder struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PathName string `json:"pathName"`
	Archived bool   `json:"archived"`
}

// IsRoot reports whether the folder sits at the top of the hierarchy.
func (f Folder) IsRoot() bool {
	return f.PathName == ""
}

type Category struct {
	ID                   string        `json:"id"`
	Name                 string        `json:"name"`
	Subcategories        []SubCategory `json:"subcategories"`
	FlatSubcategoryNames []string      `json:"flatSubcategoryNames"` // Names of Subcategories, same order
}

type SubCategory struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	PathName      string        `json:"pathName"` // Path of the parent node
	SubCategories []SubCategory `json:"subCategories,omitempty"`
}

// Path returns the full path of the node including its own name.
func (s SubCategory) Path() string {
	if s.PathName == "" {
		return s.Name
	}
	return s.PathName + "/" + s.Name
}
