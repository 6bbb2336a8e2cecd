package logging

func logParamsToZapParams(keys map[ExtraKey]any, cat Category, sub SubCategory) []any {
	params := make([]any, 0, (len(keys)+2)*2)

	params = append(params, "Category", string(cat))
	params = append(params, "SubCategory", string(sub))

	for k, v := range keys {
		params = append(params, string(k))
		params = append(params, v)
	}

	return params
}

func logParamsToZeroParams(keys map[ExtraKey]any, cat Category, sub SubCategory) map[string]any {
	params := map[string]any{
		"Category":    string(cat),
		"SubCategory": string(sub),
	}

	for k, v := range keys {
		params[string(k)] = v
	}

	return params
}
