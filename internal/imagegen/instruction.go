package imagegen

import (
	"fmt"
	"strings"

	"remodel/internal/domain"
)

// PrimaryInstruction is the full remodel instruction for a style.
func PrimaryInstruction(style domain.Style) string {
	parts := []string{
		fmt.Sprintf("Redesign the space in the uploaded photo in a %s interior design style.", style),
		"Preserve all structural elements such as windows and doors exactly where they are.",
		fmt.Sprintf("Vary the walls, floors, furniture, lighting and decor so they reflect the %s aesthetic.", style),
		"The output must be a single photorealistic image of the same space.",
	}
	return strings.Join(parts, " ")
}

// FallbackInstruction is the narrower retry instruction sent once after the
// primary one is refused. It only touches furniture, wall colour and decor.
func FallbackInstruction(style domain.Style) string {
	return fmt.Sprintf("Create a photorealistic image showing a remodeled version of this room in %s style, changing only the furniture, wall color and decor.", style)
}
