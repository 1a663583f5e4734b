// Package notification содержит доменную модель уведомлений PeerCall Hub.
package notification

// ══════════════════════════════════════════════════════════════════════════════
// CHANNEL TYPE
// ══════════════════════════════════════════════════════════════════════════════

// ChannelType определяет тип канала доставки уведомлений.
type ChannelType string

const (
	// ChannelTypeSMS - доставка через SMS-шлюз.
	ChannelTypeSMS ChannelType = "sms"

	// ChannelTypeEmail - доставка по email.
	ChannelTypeEmail ChannelType = "email"
)

// IsValid проверяет корректность типа канала.
func (ct ChannelType) IsValid() bool {
	switch ct {
	case ChannelTypeSMS, ChannelTypeEmail:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление типа канала.
func (ct ChannelType) String() string {
	return string(ct)
}

// SupportsRichContent возвращает true, если канал поддерживает форматирование.
// SMS ограничен простым текстом; email несёт HTML-ссылки подтверждения.
func (ct ChannelType) SupportsRichContent() bool {
	return ct == ChannelTypeEmail
}
