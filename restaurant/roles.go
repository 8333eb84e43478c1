package restaurant

import (
	"fmt"

	"github.com/magalia-labs/voicemesh/core"
	"github.com/magalia-labs/voicemesh/internal/util"
	"github.com/magalia-labs/voicemesh/router"
	"github.com/magalia-labs/voicemesh/tool"
	"github.com/magalia-labs/voicemesh/voice"
)

// Role names of the restaurant registry.
const (
	RoleGreeter     = "greeter"
	RoleReservation = "reservation"
	RoleTakeaway    = "takeaway"
	RoleCheckout    = "checkout"
)

// DefaultMenu is the menu recited to callers.
const DefaultMenu = "Pizza: $10, Salad: $5, Ice Cream: $3, Coffee: $2"

// Greeting is spoken as soon as the call connects, before any model round.
const Greeting = "Restaurante Magalia, ¿Dígame?"

// Config customizes the restaurant roles.
type Config struct {
	Menu    string
	VoiceID string // ElevenLabs voice shared by all roles
}

// voiceProfile is the synthesis profile used by every restaurant role.
func voiceProfile(voiceID string) *voice.Profile {
	return &voice.Profile{
		VoiceID:         voiceID,
		Stability:       0.71,
		SimilarityBoost: 0.5,
		Style:           0.0,
		SpeakerBoost:    true,
		Speed:           1.0,
	}
}

// userdata extracts the shared record from a tool context.
func userdata(tc *core.ToolContext) *UserData {
	return tc.UserData().(*UserData)
}

// Menu-bearing instructions are templates so a Config can swap the menu
// without touching the prompt text.
const (
	greeterInstructions = "Eres un amable recepcionista de restaurante. El menú es: {{.Menu}}\n" +
		"Tu trabajo es saludar a quien llama y entender si quieren " +
		"hacer una reserva o pedir comida para llevar. Guíalos al agente adecuado usando las herramientas."

	takeawayInstructions = "Eres un agente de comida para llevar que toma pedidos de los clientes. " +
		"Nuestro menú es: {{.Menu}}\n" +
		"Aclara peticiones especiales y confirma el pedido con el cliente."

	checkoutInstructions = "Eres un agente para realizar pagos en un restaurante. El menú es: {{.Menu}}\n" +
		"Tu responsabilidad es confirmar el coste total del " +
		"pedido y luego recopilar el nombre del cliente, número de teléfono e información " +
		"de la tarjeta de crédito, incluyendo el número de tarjeta, fecha de caducidad y CVV paso a paso."
)

func renderInstructions(tmpl string, cfg Config) (string, error) {
	return util.RenderTemplate(tmpl, map[string]any{"Menu": cfg.Menu})
}

// NewRegistry builds the validated four-role registry. Handoff targets are
// declared per role, so a typo in a transition name fails here, at startup,
// before any call is accepted.
func NewRegistry(optFns ...func(o *Config)) (*router.Registry, error) {
	cfg := Config{Menu: DefaultMenu}
	for _, fn := range optFns {
		fn(&cfg)
	}

	profile := voiceProfile(cfg.VoiceID)

	greeterText, err := renderInstructions(greeterInstructions, cfg)
	if err != nil {
		return nil, err
	}
	takeawayText, err := renderInstructions(takeawayInstructions, cfg)
	if err != nil {
		return nil, err
	}
	checkoutText, err := renderInstructions(checkoutInstructions, cfg)
	if err != nil {
		return nil, err
	}

	greeter := router.NewRole(RoleGreeter, greeterText,
		func(o *router.RoleOptions) {
			o.Voice = profile
			o.Handoffs = []string{RoleReservation, RoleTakeaway}
			o.Tools = []tool.Tool{
				tool.NewTransferTool("to_reservation",
					"Called when user wants to make a reservation. This function handles "+
						"transitioning to the reservation agent who will collect the necessary "+
						"details like reservation time, customer name and phone number.",
					RoleReservation),
				tool.NewTransferTool("to_takeaway",
					"Called when the user wants to place a takeaway order. This includes "+
						"handling orders for pickup, delivery, or when the user wants to "+
						"proceed to checkout with their existing order.",
					RoleTakeaway),
			}
		})

	reservation := router.NewRole(RoleReservation,
		"Eres un agente de reservas en un restaurante. Tu trabajo es preguntar por "+
			"la hora de la reserva, luego el nombre del cliente, y el número de teléfono. Después "+
			"confirma los detalles de la reserva con el cliente.",
		func(o *router.RoleOptions) {
			o.Voice = profile
			o.Handoffs = []string{RoleGreeter}
			o.Tools = []tool.Tool{
				updateReservationTimeTool(),
				confirmReservationTool(),
				updateNameTool(),
				updatePhoneTool(),
				toGreeterTool(),
			}
		})

	takeaway := router.NewRole(RoleTakeaway, takeawayText,
		func(o *router.RoleOptions) {
			o.Voice = profile
			o.Handoffs = []string{RoleGreeter, RoleCheckout}
			o.Tools = []tool.Tool{
				updateOrderTool(),
				toCheckoutTool(),
				toGreeterTool(),
			}
		})

	checkout := router.NewRole(RoleCheckout, checkoutText,
		func(o *router.RoleOptions) {
			o.Voice = profile
			o.Handoffs = []string{RoleGreeter, RoleTakeaway}
			o.Tools = []tool.Tool{
				confirmExpenseTool(),
				updateCreditCardTool(),
				confirmCheckoutTool(),
				tool.NewTransferTool("to_takeaway",
					"Called when the user wants to change their takeaway order.",
					RoleTakeaway),
				updateNameTool(),
				updatePhoneTool(),
				toGreeterTool(),
			}
		})

	return router.NewRegistry(greeter, reservation, takeaway, checkout)
}

// --- shared tools ---

type nameArgs struct {
	Name string `json:"name" description:"The customer's name"`
}

func updateNameTool() tool.Tool {
	return tool.NewFunctionToolFromStruct("update_name",
		"Called when the user provides their name. "+
			"Confirm the spelling with the user before calling the function.",
		nameArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			u := userdata(tc)
			u.CustomerName = args["name"].(string)
			return fmt.Sprintf("The name is updated to %s", u.CustomerName), nil
		})
}

type phoneArgs struct {
	Phone string `json:"phone" description:"The customer's phone number"`
}

func updatePhoneTool() tool.Tool {
	return tool.NewFunctionToolFromStruct("update_phone",
		"Called when the user provides their phone number. "+
			"Confirm the spelling with the user before calling the function.",
		phoneArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			u := userdata(tc)
			u.CustomerPhone = args["phone"].(string)
			return fmt.Sprintf("The phone number is updated to %s", u.CustomerPhone), nil
		})
}

func toGreeterTool() tool.Tool {
	return tool.NewTransferTool("to_greeter",
		"Called when user asks any unrelated questions or requests "+
			"any other services not in your job description.",
		RoleGreeter)
}

// --- reservation tools ---

type reservationTimeArgs struct {
	Time string `json:"time" description:"The reservation time"`
}

func updateReservationTimeTool() tool.Tool {
	return tool.NewFunctionToolFromStruct("update_reservation_time",
		"Called when the user provides their reservation time.",
		reservationTimeArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			u := userdata(tc)
			u.ReservationTime = args["time"].(string)
			return fmt.Sprintf("The reservation time is updated to %s", u.ReservationTime), nil
		})
}

// confirmReservationTool hands off to the greeter once name, phone and time
// are on record. Incomplete records get a user-facing prompt instead; the
// tool is safe to call repeatedly.
func confirmReservationTool() tool.Tool {
	return tool.NewFunctionTool("confirm_reservation",
		"Called when the user confirms the reservation.",
		emptySchema(),
		func(tc *core.ToolContext, _ map[string]any) (any, error) {
			u := userdata(tc)
			if u.CustomerName == "" || u.CustomerPhone == "" {
				return "Please provide your name and phone number first.", nil
			}
			if u.ReservationTime == "" {
				return "Please provide reservation time first.", nil
			}
			tc.TransferTo(RoleGreeter)
			return tool.TransferResult(RoleGreeter), nil
		})
}

// --- takeaway tools ---

func updateOrderTool() tool.Tool {
	return tool.NewFunctionTool("update_order",
		"Called when the user creates or updates their order.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"items": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "The items of the full order",
				},
			},
			"required": []string{"items"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			raw, _ := args["items"].([]any)
			items := make([]string, 0, len(raw))
			for _, it := range raw {
				s, ok := it.(string)
				if !ok {
					return nil, fmt.Errorf("order items must be strings, got %T", it)
				}
				items = append(items, s)
			}
			u := userdata(tc)
			u.Order = items
			return fmt.Sprintf("The order is updated to %v", items), nil
		})
}

// toCheckoutTool refuses to move an empty order forward.
func toCheckoutTool() tool.Tool {
	return tool.NewFunctionTool("to_checkout",
		"Called when the user confirms the order and is ready to pay.",
		emptySchema(),
		func(tc *core.ToolContext, _ map[string]any) (any, error) {
			u := userdata(tc)
			if len(u.Order) == 0 {
				return "No takeaway order found. Please make an order first.", nil
			}
			tc.TransferTo(RoleCheckout)
			return tool.TransferResult(RoleCheckout), nil
		})
}

// --- checkout tools ---

type expenseArgs struct {
	Expense float64 `json:"expense" description:"The expense of the order"`
}

func confirmExpenseTool() tool.Tool {
	return tool.NewFunctionToolFromStruct("confirm_expense",
		"Called when the expense of the order is confirmed with the user.",
		expenseArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			u := userdata(tc)
			u.Expense = args["expense"].(float64)
			return fmt.Sprintf("The expense is confirmed to be %v", u.Expense), nil
		})
}

type creditCardArgs struct {
	Number string `json:"number" description:"The credit card number"`
	Expiry string `json:"expiry" description:"The expiry date of the credit card"`
	CVV    string `json:"cvv" description:"The CVV of the credit card"`
}

func updateCreditCardTool() tool.Tool {
	return tool.NewFunctionToolFromStruct("update_credit_card",
		"Called when the user provides their credit card information.",
		creditCardArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			u := userdata(tc)
			u.CreditCardNumber = args["number"].(string)
			u.CreditCardExpiry = args["expiry"].(string)
			u.CreditCardCVV = args["cvv"].(string)
			return fmt.Sprintf("The credit card number is updated to %s", u.CreditCardNumber), nil
		})
}

// confirmCheckoutTool finalizes payment: it requires a confirmed expense and
// complete card details, then marks the record checked out and returns the
// caller to the greeter.
func confirmCheckoutTool() tool.Tool {
	return tool.NewFunctionTool("confirm_checkout",
		"Called when the user confirms the checkout.",
		emptySchema(),
		func(tc *core.ToolContext, _ map[string]any) (any, error) {
			u := userdata(tc)
			if u.Expense == 0 {
				return "Please confirm the expense first.", nil
			}
			if u.CreditCardNumber == "" || u.CreditCardExpiry == "" || u.CreditCardCVV == "" {
				return "Please provide the credit card information first.", nil
			}
			u.CheckedOut = true
			tc.TransferTo(RoleGreeter)
			return tool.TransferResult(RoleGreeter), nil
		})
}

func emptySchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}
