package lang

func typescriptSpec(name string, extensions []string) *Spec {
	return &Spec{
		Name:       name,
		Extensions: extensions,
		QueryDir:   "typescript",
		FunctionKinds: []string{
			"function_declaration",
			"generator_function_declaration",
			"method_definition",
			"arrow_function",
			"function_expression",
		},
		ClassKinds: []string{"class_declaration", "abstract_class_declaration"},
		ContainerKinds: []string{
			"function_declaration",
			"generator_function_declaration",
			"function_expression",
			"generator_function",
			"arrow_function",
			"method_definition",
			"class_declaration",
			"abstract_class_declaration",
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
		HeaderFields:       []string{"name", "type_parameters", "parameters", "parameter", "return_type"},
		HeaderKinds:        []string{"class_heritage"},
	}
}

func init() {
	Register(typescriptSpec(TypeScript, []string{".ts", ".mts", ".cts"}))
	Register(typescriptSpec(TSX, []string{".tsx"}))
}
