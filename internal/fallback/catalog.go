// Package fallback holds the stand-in images used when synthesis produces nothing.
package fallback

import "luxegen-backend/internal/models"

const unsplash = "https://images.unsplash.com/"
const crop = "?w=720&h=1280&fit=crop"

var catalog = map[models.ProductCategory][]string{
	models.CategoryBag: {
		unsplash + "photo-1548036328-c9fa89d128fa" + crop,
		unsplash + "photo-1584917865442-de89df76afd3" + crop,
		unsplash + "photo-1553062407-98eeb64c6a62" + crop,
		unsplash + "photo-1591561954557-26941169b49e" + crop,
	},
	models.CategoryShoe: {
		unsplash + "photo-1543163521-1bf539c55dd2" + crop,
		unsplash + "photo-1596704017254-9b121068fb31" + crop,
		unsplash + "photo-1595950653106-6c9ebd614d3a" + crop,
		unsplash + "photo-1560343090-f0409e92791a" + crop,
	},
	models.CategoryDress: {
		unsplash + "photo-1595777457583-95e059d581b8" + crop,
		unsplash + "photo-1572804013309-59a88b7e92f1" + crop,
		unsplash + "photo-1515372039744-b8f02a3ae446" + crop,
		unsplash + "photo-1539008835657-9e8e9680c956" + crop,
	},
	models.CategoryJewelry: {
		unsplash + "photo-1515562141207-7a88fb7ce338" + crop,
		unsplash + "photo-1599643478518-a784e5dc4c8f" + crop,
		unsplash + "photo-1535632066927-ab7c9ab60908" + crop,
		unsplash + "photo-1603561591411-07134e71a2a9" + crop,
	},
	models.CategoryWatch: {
		unsplash + "photo-1523275335684-37898b6baf30" + crop,
		unsplash + "photo-1524592094714-0f0654e20314" + crop,
		unsplash + "photo-1522312346375-d1a52e2b99b3" + crop,
		unsplash + "photo-1587925358603-c2eea5305bbc" + crop,
	},
	models.CategoryGlasses: {
		unsplash + "photo-1511499767150-a48a237f0083" + crop,
		unsplash + "photo-1572635196237-14b3f281503f" + crop,
		unsplash + "photo-1574258495973-f010dfbb5371" + crop,
		unsplash + "photo-1508296695146-257a814070b4" + crop,
	},
	models.CategoryAccessory: {
		unsplash + "photo-1584917865442-de89df76afd3" + crop,
		unsplash + "photo-1606760227091-3dd870d97f1d" + crop,
		unsplash + "photo-1590874103328-eac38a683ce7" + crop,
		unsplash + "photo-1551488831-00ddcb6c6bd3" + crop,
	},
}

// Catalog is the static category-indexed fallback set.
type Catalog struct{}

func New() Catalog {
	return Catalog{}
}

// Images returns a copy of the canonical images for category. Unknown categories get the accessory set.
func (Catalog) Images(category models.ProductCategory) []string {
	images, ok := catalog[category]
	if !ok {
		images = catalog[models.CategoryAccessory]
	}
	out := make([]string, len(images))
	copy(out, images)
	return out
}

// Fill returns exactly n catalog images for category, truncating or cycling through the set in order.
func (c Catalog) Fill(category models.ProductCategory, n int) []string {
	if n <= 0 {
		return []string{}
	}
	images := c.Images(category)
	out := make([]string, n)
	for i := range out {
		out[i] = images[i%len(images)]
	}
	return out
}

// Placeholder returns the image standing in for a single failed scene at index.
func (c Catalog) Placeholder(category models.ProductCategory, index int) string {
	if index < 0 {
		index = 0
	}
	images := c.Images(category)
	return images[index%len(images)]
}
