package response

// maskedValue replaces protected values in logged payloads.
const maskedValue = "******"

// protectedKeys are mapping keys whose values never reach the logs.
var protectedKeys = map[string]struct{}{
	"password":              {},
	"password_confirmation": {},
}

// Maskable is implemented by typed values (bound request bodies, domain
// models) that can present themselves as a plain mapping for logging and
// encoding.
type Maskable interface {
	ToMap() map[string]any
}

// Mask returns a masked deep copy of v. Mappings have the values of protected
// keys replaced with "******"; every other value is masked recursively.
// Sequences are masked element by element. Keys are never altered and v itself
// is left untouched.
func Mask(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if _, ok := protectedKeys[k]; ok {
				out[k] = maskedValue
				continue
			}
			out[k] = Mask(val)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, val := range t {
			if _, ok := protectedKeys[k]; ok {
				val = maskedValue
			}
			out[k] = val
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Mask(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Mask(val)
		}
		return out
	case Maskable:
		return Mask(t.ToMap())
	default:
		return v
	}
}
