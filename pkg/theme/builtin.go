package theme

func registerBuiltins() {
	for _, t := range []Theme{defaultTheme(), bambooTheme(), monoTheme()} {
		register(t)
	}
}

// defaultTheme is a dark neutral palette.
func defaultTheme() Theme {
	return Theme{
		Name:       "default",
		Foreground: "#d4d4d4",
		Dim:        "#6b6b6b",
		Accent:     "#7C3AED",

		Brand:       "#f5f5f5",
		Border:      "#3e3e3e",
		BorderFocus: "#7C3AED",

		Button:      "#3e3e3e",
		ButtonFocus: "#7C3AED",
		ButtonText:  "#f5f5f5",

		Fact: "#d4d4d4",

		HelpKey:  "#7C3AED",
		HelpDesc: "#6b6b6b",
	}
}

// bambooTheme is green on charcoal.
func bambooTheme() Theme {
	return Theme{
		Name:       "bamboo",
		Foreground: "#e8eddf",
		Dim:        "#7d8570",
		Accent:     "#8fbf3f",

		Brand:       "#e8eddf",
		Border:      "#3a4a2a",
		BorderFocus: "#8fbf3f",

		Button:      "#3a4a2a",
		ButtonFocus: "#5f8a2c",
		ButtonText:  "#f4f7ee",

		Fact: "#dfe8cf",

		HelpKey:  "#8fbf3f",
		HelpDesc: "#7d8570",
	}
}

// monoTheme is greyscale only, black and white like the animal.
func monoTheme() Theme {
	return Theme{
		Name:       "mono",
		Foreground: "#e0e0e0",
		Dim:        "#808080",
		Accent:     "#ffffff",

		Brand:       "#ffffff",
		Border:      "#505050",
		BorderFocus: "#ffffff",

		Button:      "#303030",
		ButtonFocus: "#ffffff",
		ButtonText:  "#000000",

		Fact: "#e0e0e0",

		HelpKey:  "#ffffff",
		HelpDesc: "#808080",
	}
}
