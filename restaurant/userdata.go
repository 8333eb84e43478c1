// Package restaurant wires the routed roles of a phone-order restaurant:
// a greeter that dispatches callers, a reservation desk, a takeaway
// order-taker and a checkout that collects payment. All four share one
// UserData record per call.
package restaurant

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/magalia-labs/voicemesh/core"
)

// UserData is the shared per-call record. Tools of the active role mutate
// it; on every handoff a snapshot is injected into the entering role's chat
// context.
type UserData struct {
	CustomerName  string `yaml:"nombre_cliente"`
	CustomerPhone string `yaml:"telefono_cliente"`

	ReservationTime string `yaml:"hora_reserva"`

	Order []string `yaml:"pedido"`

	CreditCardNumber string `yaml:"-"`
	CreditCardExpiry string `yaml:"-"`
	CreditCardCVV    string `yaml:"-"`

	Expense    float64 `yaml:"importe"`
	CheckedOut bool    `yaml:"pagado"`
}

var _ core.Summarizer = (*UserData)(nil)

// Summary renders the record as YAML for the system message injected on
// handoff. YAML reads better to the model than JSON here. Unset fields
// render as "desconocido"; card details only appear once a number was
// provided.
func (u *UserData) Summary() string {
	orDefault := func(s string) any {
		if s == "" {
			return "desconocido"
		}
		return s
	}

	data := map[string]any{
		"nombre_cliente":   orDefault(u.CustomerName),
		"telefono_cliente": orDefault(u.CustomerPhone),
		"hora_reserva":     orDefault(u.ReservationTime),
		"pagado":           u.CheckedOut,
	}
	if len(u.Order) > 0 {
		data["pedido"] = u.Order
	} else {
		data["pedido"] = "desconocido"
	}
	if u.Expense > 0 {
		data["importe"] = u.Expense
	} else {
		data["importe"] = "desconocido"
	}
	if u.CreditCardNumber != "" {
		data["tarjeta_credito"] = map[string]any{
			"numero":    u.CreditCardNumber,
			"caducidad": orDefault(u.CreditCardExpiry),
			"cvv":       orDefault(u.CreditCardCVV),
		}
	}

	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Sprintf("nombre_cliente: %v", orDefault(u.CustomerName))
	}
	return "Los datos actuales del usuario son:\n" + string(out)
}
