package model

type ViewType string

const (
	ViewTypeMessage ViewType = "message"
	ViewTypeModal   ViewType = "modal"
	ViewTypeHome    ViewType = "home"
)

type BlockType string

const (
	BlockTypeSection BlockType = "section"
	BlockTypeFields  BlockType = "fields"
	BlockTypeDivider BlockType = "divider"
	BlockTypeActions BlockType = "actions"
	BlockTypeContext BlockType = "context"
)

type ButtonStyle string

const (
	ButtonStyleDefault ButtonStyle = ""
	ButtonStylePrimary ButtonStyle = "primary"
	ButtonStyleDanger  ButtonStyle = "danger"
)

// View is a platform-agnostic description of a message, modal or home tab.
type View struct {
	Type ViewType `json:"type"`
	// CallbackID identifies the modal in view_submission and view_closed payloads.
	CallbackID      string  `json:"callback_id,omitempty"`
	Title           string  `json:"title,omitempty"`
	CloseLabel      string  `json:"close_label,omitempty"`
	FallbackText    string  `json:"fallback_text,omitempty"`
	PrivateMetadata string  `json:"private_metadata,omitempty"`
	Blocks          []Block `json:"blocks"`
}

type Block struct {
	Type    BlockType `json:"type"`
	Text    string    `json:"text,omitempty"`
	Fields  []Field   `json:"fields,omitempty"`
	Buttons []Button  `json:"buttons,omitempty"`
}

type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Button struct {
	ActionID string      `json:"action_id"`
	Text     string      `json:"text"`
	Value    string      `json:"value,omitempty"`
	Style    ButtonStyle `json:"style,omitempty"`
}

func SectionBlock(text string) Block { return Block{Type: BlockTypeSection, Text: text} }

func FieldsBlock(fields ...Field) Block { return Block{Type: BlockTypeFields, Fields: fields} }

func DividerBlock() Block { return Block{Type: BlockTypeDivider} }

func ActionsBlock(buttons ...Button) Block { return Block{Type: BlockTypeActions, Buttons: buttons} }

func ContextBlock(text string) Block { return Block{Type: BlockTypeContext, Text: text} }

// Buttons returns every button in the view, in block order.
func (v View) Buttons() []Button {
	var out []Button
	for _, b := range v.Blocks {
		out = append(out, b.Buttons...)
	}
	return out
}

// Button looks up a button by action ID.
func (v View) Button(actionID string) (Button, bool) {
	for _, b := range v.Buttons() {
		if b.ActionID == actionID {
			return b, true
		}
	}
	return Button{}, false
}

// CountBlocks returns how many blocks of type t the view holds.
func (v View) CountBlocks(t BlockType) int {
	n := 0
	for _, b := range v.Blocks {
		if b.Type == t {
			n++
		}
	}
	return n
}
