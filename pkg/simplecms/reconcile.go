package simplecms

// mediaKinds lists the article media slots in upload order.
var mediaKinds = []MediaKind{MediaKindImage, MediaKindVideo}

// OrphanedMedia is a hosted media URL that no record references any more.
type OrphanedMedia struct {
	Kind MediaKind
	URL  string
}

// Orphans compares the previous and next version of an article slot by slot.
// A previous URL is orphaned when it is non-empty, hosted by the media store
// (owns) and differs from the next URL in the same slot.
func Orphans(prev, next *Article, owns func(url string) bool) []OrphanedMedia {
	if prev == nil {
		return nil
	}
	var orphans []OrphanedMedia
	for _, kind := range mediaKinds {
		old := prev.MediaURL(kind)
		if old == "" || !owns(old) {
			continue
		}
		if next != nil && next.MediaURL(kind) == old {
			continue
		}
		orphans = append(orphans, OrphanedMedia{Kind: kind, URL: old})
	}
	return orphans
}

// Released returns every hosted media URL of a deleted article.
func Released(deleted *Article, owns func(url string) bool) []OrphanedMedia {
	return Orphans(deleted, nil, owns)
}
