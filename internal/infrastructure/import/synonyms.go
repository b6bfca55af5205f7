package csvimport

import "github.com/storefront/backend/internal/domain/bulk"

// SynonymTable lists, per canonical field, the header spellings that identify it
type SynonymTable map[bulk.CanonicalField][]string

// defaultSynonyms covers the English, Ukrainian and Russian headers vendors use.
// It is copied into every ColumnMapper and never modified.
var defaultSynonyms = SynonymTable{
	bulk.FieldName: {
		"name", "title", "product name", "product title", "item name",
		"назва", "назва товару", "найменування", "наименование", "название", "наименование товара",
	},
	bulk.FieldSKU: {
		"sku", "article", "code", "product code", "vendor code", "item code", "part number", "mpn",
		"артикул", "код", "код товару", "код товара",
	},
	bulk.FieldDescription: {
		"description", "desc", "details",
		"опис", "описание",
	},
	bulk.FieldPrice: {
		"price", "cost", "retail price", "unit price",
		"ціна", "цена", "вартість", "стоимость", "роздрібна ціна", "розничная цена",
	},
	bulk.FieldStock: {
		"stock", "qty", "quantity", "inventory", "in stock",
		"кількість", "количество", "залишок", "остаток", "наявність", "наличие",
	},
	bulk.FieldCategory: {
		"category", "group", "section",
		"категорія", "категория", "група", "группа", "розділ", "раздел",
	},
	bulk.FieldImages: {
		"images", "image", "image url", "photo", "photos", "picture", "pictures",
		"зображення", "изображение", "изображения", "фото",
	},
	bulk.FieldCurrency: {
		"currency", "currency code",
		"валюта",
	},
}

// DefaultSynonyms returns a copy of the built-in synonym table
func DefaultSynonyms() SynonymTable {
	return defaultSynonyms.clone()
}

func (t SynonymTable) clone() SynonymTable {
	out := make(SynonymTable, len(t))
	for f, words := range t {
		out[f] = append([]string(nil), words...)
	}
	return out
}
