package menugen

// Nutrition is the aggregate macro breakdown of a generated menu, in grams
// except calories.
type Nutrition struct {
	Protein  float64 `json:"protein" validate:"gte=0"`
	Carbs    float64 `json:"carbs" validate:"gte=0"`
	Fat      float64 `json:"fat" validate:"gte=0"`
	Calories float64 `json:"calories" validate:"gte=0"`
}

// RecipeIngredient pairs an ingredient name with a free-form quantity string.
type RecipeIngredient struct {
	Name     string `json:"name" validate:"required"`
	Quantity string `json:"quantity" validate:"required"`
}

// Recipe is one dish of a generated menu.
type Recipe struct {
	Name         string             `json:"name" validate:"required"`
	Ingredients  []RecipeIngredient `json:"ingredients" validate:"required,min=1,dive"`
	Instructions []string           `json:"instructions" validate:"required,min=1"`
	PrepTime     int                `json:"prepTime" validate:"gte=0"`
	CookTime     int                `json:"cookTime" validate:"gte=0"`
	Servings     int                `json:"servings" validate:"gte=1"`
}

// Menu is the model's structured answer to a generation request.
type Menu struct {
	MenuName  string    `json:"menuName" validate:"required"`
	Nutrition Nutrition `json:"nutrition" validate:"required"`
	Recipes   []Recipe  `json:"recipes" validate:"required,min=1,dive"`
}
