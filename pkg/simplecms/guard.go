package simplecms

// CanDeleteCategory reports whether no article references the category.
//
// The check runs against the given in-memory articles, normally the current
// cache snapshot. It is not linearizable with article writes made by other
// sessions against the backing store.
func CanDeleteCategory(articles []*Article, categoryID string) bool {
	for _, a := range articles {
		if a.Category == categoryID {
			return false
		}
	}
	return true
}
