package view

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jonny/insight-bot/internal/domain/model"
)

var ErrIncompleteInput = errors.New("incomplete view input")

type Kind string

const (
	KindLoading          Kind = "loading"
	KindLoadingModal     Kind = "loading_modal"
	KindFailure          Kind = "failure"
	KindFailureModal     Kind = "failure_modal"
	KindCustomerResult   Kind = "customer_result"
	KindOrdersModal      Kind = "orders_modal"
	KindNextActionsModal Kind = "next_actions_modal"
	KindHome             Kind = "home"
)

const (
	DefaultLoadingText = "Getting and summarizing information... :hourglass_flowing_sand:"
	DefaultFailureText = ":warning: Could not fetch the requested information. Please try again."

	OrdersModalTitle      = "Orders"
	NextActionsModalTitle = "Next Best Actions"
	closeLabel            = "Cancel"

	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04 MST"
)

// Input carries everything a view may show. Build reads nothing else.
type Input struct {
	Customer *model.CustomerSnapshot
	Orders   *model.OrderBatch
	Summary  model.Summary
	Cursor   *model.Cursor
	UserID   string
	// Text overrides the default loading or failure text.
	Text string
	// Title overrides the title of a loading or failure modal.
	Title string
}

func (in Input) hasRecord() bool { return in.Customer != nil || in.Orders != nil }

// Build renders the view of the given kind. It is a pure function of its
// arguments: identical inputs give identical views.
func Build(kind Kind, in Input) (model.View, error) {
	if in.hasRecord() != in.Summary.Valid() {
		return model.View{}, fmt.Errorf("%w: %s needs a record and its summary together", ErrIncompleteInput, kind)
	}

	switch kind {
	case KindLoading:
		return messageView(textOr(in.Text, DefaultLoadingText)), nil
	case KindFailure:
		return messageView(textOr(in.Text, DefaultFailureText)), nil
	case KindLoadingModal:
		return modalView(textOr(in.Title, OrdersModalTitle), "", textOr(in.Text, DefaultLoadingText)), nil
	case KindFailureModal:
		return modalView(textOr(in.Title, OrdersModalTitle), "", textOr(in.Text, DefaultFailureText)), nil
	case KindCustomerResult:
		if in.Customer == nil {
			return model.View{}, fmt.Errorf("%w: %s needs a customer", ErrIncompleteInput, kind)
		}
		return customerResult(*in.Customer, in.Summary), nil
	case KindOrdersModal:
		if in.Orders == nil || in.Cursor == nil {
			return model.View{}, fmt.Errorf("%w: %s needs orders and a cursor", ErrIncompleteInput, kind)
		}
		return ordersModal(*in.Orders, in.Summary, *in.Cursor), nil
	case KindNextActionsModal:
		if in.Customer == nil {
			return model.View{}, fmt.Errorf("%w: %s needs a customer", ErrIncompleteInput, kind)
		}
		return nextActionsModal(*in.Customer, in.Summary), nil
	case KindHome:
		if in.UserID == "" {
			return model.View{}, fmt.Errorf("%w: %s needs a user", ErrIncompleteInput, kind)
		}
		return home(in.UserID), nil
	default:
		return model.View{}, fmt.Errorf("unknown view kind %q", kind)
	}
}

func textOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func messageView(text string) model.View {
	return model.View{
		Type:         model.ViewTypeMessage,
		FallbackText: text,
		Blocks:       []model.Block{model.SectionBlock(text)},
	}
}

func modalView(title, callbackID, text string) model.View {
	return model.View{
		Type:       model.ViewTypeModal,
		CallbackID: callbackID,
		Title:      title,
		CloseLabel: closeLabel,
		Blocks:     []model.Block{model.SectionBlock(text)},
	}
}

func summaryBlock(s model.Summary) model.Block {
	return model.SectionBlock("*Summary:*\n" + s.Text)
}

func customerFields(c model.CustomerSnapshot) model.Block {
	return model.FieldsBlock(
		model.Field{Label: "Orders Placed", Value: strconv.Itoa(c.OrdersPlaced)},
		model.Field{Label: "Lifetime Amount", Value: c.LifetimeAmount.String()},
		model.Field{Label: "Last Visit", Value: c.LastVisit.UTC().Format(dateLayout)},
		model.Field{Label: "Tasks Outstanding", Value: strconv.Itoa(c.TasksOutstanding)},
	)
}

func customerResult(c model.CustomerSnapshot, s model.Summary) model.View {
	return model.View{
		Type:         model.ViewTypeMessage,
		FallbackText: "Customer summary: " + s.Text,
		Blocks: []model.Block{
			summaryBlock(s),
			model.SectionBlock("*Customer Information*"),
			customerFields(c),
			model.ActionsBlock(
				model.Button{ActionID: ActionCheckOrders, Text: "Check Orders", Value: c.CustomerID},
				model.Button{ActionID: ActionNextBestActions, Text: "Next Best Actions", Value: c.CustomerID},
			),
		},
	}
}

func ordersModal(batch model.OrderBatch, s model.Summary, cur model.Cursor) model.View {
	blocks := []model.Block{summaryBlock(s)}
	for i, o := range batch.Orders {
		blocks = append(blocks,
			model.DividerBlock(),
			model.SectionBlock(fmt.Sprintf("*Order %d:*\n*Time Placed:* %s\n*Order Amount:* %s\n*Main Product Ordered:* %s",
				batch.Offset+i+1, o.PlacedAt.UTC().Format(dateTimeLayout), o.Amount, o.Product)),
		)
	}

	if batch.Len() > 0 {
		blocks = append(blocks, model.ContextBlock(fmt.Sprintf("Showing %d-%d of %d orders",
			batch.Offset+1, batch.Offset+batch.Len(), batch.Total)))
	} else {
		blocks = append(blocks, model.ContextBlock("No orders found"))
	}

	if cur.HasNext() {
		blocks = append(blocks, model.ActionsBlock(model.Button{
			ActionID: ActionNextOrders,
			Text:     fmt.Sprintf("Next %d Results", cur.NextSize()),
			Value:    cur.Encode(),
		}))
	}

	return model.View{
		Type:            model.ViewTypeModal,
		CallbackID:      CallbackOrdersModal,
		Title:           OrdersModalTitle,
		CloseLabel:      closeLabel,
		PrivateMetadata: batch.CustomerID,
		Blocks:          blocks,
	}
}

func nextActionsModal(c model.CustomerSnapshot, s model.Summary) model.View {
	return model.View{
		Type:            model.ViewTypeModal,
		CallbackID:      CallbackNextActionsModal,
		Title:           NextActionsModalTitle,
		CloseLabel:      closeLabel,
		PrivateMetadata: c.CustomerID,
		Blocks: []model.Block{
			model.SectionBlock("*Next Best Actions:*\n" + s.Text),
			model.DividerBlock(),
			customerFields(c),
		},
	}
}

func home(userID string) model.View {
	return model.View{
		Type: model.ViewTypeHome,
		Blocks: []model.Block{
			model.SectionBlock(fmt.Sprintf("*Welcome home, <@%s> :house:*", userID)),
			model.SectionBlock("Run the *Customer Info* shortcut in a customer channel, or type `/insight`, to get a summarized view of the customer with their latest orders."),
			model.ContextBlock("Type `/insight help` for the list of commands."),
		},
	}
}
