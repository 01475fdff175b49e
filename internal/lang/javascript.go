package lang

func init() {
	Register(&Spec{
		Name:       JavaScript,
		Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		QueryDir:   "javascript",
		FunctionKinds: []string{
			"function_declaration",
			"generator_function_declaration",
			"method_definition",
			"arrow_function",
			"function_expression",
		},
		ClassKinds: []string{"class_declaration"},
		ContainerKinds: []string{
			"function_declaration",
			"generator_function_declaration",
			"function_expression",
			"generator_function",
			"arrow_function",
			"method_definition",
			"class_declaration",
			"class",
		},
		MethodKinds:        []string{"method_definition"},
		WrapperKinds:       []string{"export_statement"},
		BoundFunctionKinds: []string{"arrow_function", "function_expression"},
		MemberOnlyKinds:    []string{"method_definition"},
		ClassBodyKinds:     []string{"class_body"},
		SelfReceivers:      []string{"this"},
		ConstructorNames:   []string{"constructor"},
		Docstrings:         DocLeadingComment,
		HeaderFields:       []string{"name", "parameters", "parameter"},
		HeaderKinds:        []string{"class_heritage"},
	})
}
