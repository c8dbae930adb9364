package menugen

import "fmt"

const systemPrompt = "You are a professional nutritionist and fitness coach who specializes in creating healthy weight loss menus based on ingredients. Always respond in English."

func buildPrompt(ingredients string) string {
	return fmt.Sprintf(`You are a professional nutritionist and fitness coach. Based on the following ingredients, generate a healthy fitness and weight loss menu.

Ingredients: %s

Please generate a menu with the following information:
1. Menu name
2. Total nutrition (protein/g, carbs/g, fat/g, total calories)
3. 2-3 detailed recipes, each including:
   - Recipe name
   - Required ingredients with quantities
   - Cooking steps
   - Prep time (minutes)
   - Cook time (minutes)
   - Servings

Return in JSON format as follows:
{
  "menuName": "Menu Name",
  "nutrition": {
    "protein": number,
    "carbs": number,
    "fat": number,
    "calories": number
  },
  "recipes": [
    {
      "name": "Recipe Name",
      "ingredients": [
        {"name": "Ingredient Name", "quantity": "Amount"}
      ],
      "instructions": ["Step 1", "Step 2"],
      "prepTime": number,
      "cookTime": number,
      "servings": number
    }
  ]
}

Return ONLY the JSON, no additional text.`, ingredients)
}
