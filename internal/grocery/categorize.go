// Package grocery assigns store categories to item names.
package grocery

import (
	"sort"
	"strings"
)

const Uncategorized = "Other"

var keywords = map[string][]string{
	"Produce": {
		"apple", "banana", "orange", "lemon", "lime", "avocado", "tomato", "potato", "onion",
		"garlic", "lettuce", "spinach", "kale", "broccoli", "carrot", "celery", "cucumber",
		"pepper", "mushroom", "grape", "berries", "berry", "melon", "pear", "peach", "herbs",
		"salad mix", "green onion", "sweet potato", "zucchini",
	},
	"Dairy": {
		"milk", "cheese", "yogurt", "butter", "cream", "egg", "eggs", "oat milk", "almond milk",
		"sour cream", "cream cheese", "cottage cheese",
	},
	"Meat & Seafood": {
		"chicken", "beef", "pork", "turkey", "bacon", "sausage", "ham", "salmon", "tuna steak",
		"shrimp", "fish", "ground beef", "deli meat", "hot dog",
	},
	"Bakery": {
		"bread", "bagel", "bun", "roll", "tortilla", "muffin", "croissant", "pita",
	},
	"Pantry": {
		"rice", "pasta", "flour", "sugar", "salt", "oil", "vinegar", "cereal", "oats", "beans",
		"canned", "soup", "sauce", "peanut butter", "jam", "honey", "spice", "tuna", "coffee beans",
	},
	"Frozen": {
		"frozen", "ice cream", "popsicle", "frozen pizza", "frozen peas",
	},
	"Beverages": {
		"water", "juice", "soda", "coffee", "tea", "beer", "wine", "sparkling water", "kombucha",
	},
	"Snacks": {
		"chips", "crackers", "cookies", "pretzels", "popcorn", "nuts", "granola bar", "chocolate",
	},
	"Household": {
		"paper towels", "toilet paper", "dish soap", "detergent", "trash bags", "sponge",
		"foil", "cleaner", "napkins",
	},
	"Personal Care": {
		"shampoo", "conditioner", "toothpaste", "deodorant", "soap", "lotion", "razor",
	},
}

type keyword struct {
	text     string
	category string
}

// index holds every keyword, longest first, so the most specific phrase wins.
var index = buildIndex()

func buildIndex() []keyword {
	var idx []keyword
	for category, words := range keywords {
		for _, w := range words {
			idx = append(idx, keyword{text: w, category: category})
		}
	}
	sort.Slice(idx, func(i, j int) bool {
		if len(idx[i].text) != len(idx[j].text) {
			return len(idx[i].text) > len(idx[j].text)
		}
		return idx[i].text < idx[j].text
	})
	return idx
}

// Categorize returns the category for an item name, matching keywords as
// whole words, case-insensitively. Unknown names fall back to Uncategorized.
func Categorize(itemName string) string {
	name := " " + strings.Join(strings.Fields(strings.ToLower(itemName)), " ") + " "
	if strings.TrimSpace(name) == "" {
		return Uncategorized
	}
	for _, k := range index {
		if strings.Contains(name, " "+k.text+" ") || strings.Contains(name, " "+k.text+"s ") {
			return k.category
		}
	}
	return Uncategorized
}
