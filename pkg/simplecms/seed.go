package simplecms

import (
	"time"

	"github.com/google/uuid"
)

// SeedOwnerID owns every record of the built-in seed dataset.
const SeedOwnerID = "seed"

// SeedArticles returns the built-in articles served when the backing store
// is unreachable on Load. Each call returns fresh copies, newest first.
func SeedArticles() []*Article {
	day := func(d int) time.Time { return time.Date(2025, time.March, d, 9, 0, 0, 0, time.UTC) }
	return []*Article{
		{
			ID:        uuid.MustParse("5d0c9c34-6a0e-4b5e-9d1e-000000000001"),
			Title:     "The Future of AI in Service Design",
			Summary:   "Exploring how artificial intelligence is reshaping service design and customer experiences",
			Content:   "Artificial intelligence is revolutionizing how we design and deliver services. From chatbots to predictive analytics, AI is enabling more personalized and efficient service experiences. This article explores the latest trends and future possibilities in AI-driven service design.",
			Date:      "March 7, 2025",
			ReadTime:  "5 min read",
			ImageURL:  "https://images.unsplash.com/photo-1677442136019-21780ecad995",
			Category:  "innovation",
			OwnerID:   SeedOwnerID,
			CreatedAt: day(7),
			UpdatedAt: day(7),
		},
		{
			ID:        uuid.MustParse("5d0c9c34-6a0e-4b5e-9d1e-000000000002"),
			Title:     "Sustainable Service Solutions",
			Summary:   "How companies are incorporating sustainability into their service offerings",
			Content:   "Sustainability is no longer optional in service design. This article examines how leading companies are redesigning their services to be more environmentally friendly while maintaining high quality and user satisfaction.",
			Date:      "March 6, 2025",
			ReadTime:  "4 min read",
			ImageURL:  "https://images.unsplash.com/photo-1497366216548-37526070297c",
			Category:  "project",
			OwnerID:   SeedOwnerID,
			CreatedAt: day(6),
			UpdatedAt: day(6),
		},
		{
			ID:        uuid.MustParse("5d0c9c34-6a0e-4b5e-9d1e-000000000003"),
			Title:     "Digital Transformation Success Stories",
			Summary:   "Case studies of successful digital transformation initiatives",
			Content:   "Digital transformation is reshaping industries. Through these case studies, we explore how organizations have successfully navigated their digital transformation journeys.",
			Date:      "March 5, 2025",
			ReadTime:  "6 min read",
			ImageURL:  "https://images.unsplash.com/photo-1460925895917-afdab827c52f",
			Category:  "update",
			OwnerID:   SeedOwnerID,
			CreatedAt: day(5),
			UpdatedAt: day(5),
		},
	}
}

// SeedCategories returns the built-in categories matching SeedArticles.
func SeedCategories() []*Category {
	created := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	return []*Category{
		{ID: "innovation", Name: "Innovation", Icon: "Lightbulb", OwnerID: SeedOwnerID, CreatedAt: created},
		{ID: "project", Name: "Projects", Icon: "Rocket", OwnerID: SeedOwnerID, CreatedAt: created},
		{ID: "update", Name: "Updates", Icon: "RefreshCw", OwnerID: SeedOwnerID, CreatedAt: created},
	}
}
