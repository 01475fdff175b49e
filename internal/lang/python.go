package lang

func init() {
	Register(&Spec{
		Name:             Python,
		Extensions:       []string{".py", ".pyi"},
		QueryDir:         "python",
		FunctionKinds:    []string{"function_definition"},
		ClassKinds:       []string{"class_definition"},
		ContainerKinds:   []string{"function_definition", "class_definition", "lambda"},
		MethodKinds:      []string{"function_definition"},
		WrapperKinds:     []string{"decorated_definition"},
		SelfReceivers:    []string{"self", "cls"},
		ConstructorNames: []string{"__init__", "__new__", "__post_init__"},
		Docstrings:       DocFirstStatement,
		HeaderFields:     []string{"name", "type_parameters", "parameters", "superclasses", "return_type"},
	})
}
