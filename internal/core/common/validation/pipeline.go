package validation

// Result is the outcome of a single rule.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	Rule   string `json:"rule,omitempty"`
}

func Success() Result {
	return Result{Valid: true}
}

func Failure(reason string) Result {
	return Result{Valid: false, Reason: reason}
}

// Rule is a single named predicate with a human readable failure reason.
type Rule[T any] interface {
	Name() string
	Validate(input T) Result
}

type ruleFunc[T any] struct {
	name string
	fn   func(T) Result
}

func (r ruleFunc[T]) Name() string { return r.name }

func (r ruleFunc[T]) Validate(input T) Result { return r.fn(input) }

// RuleFunc adapts a plain function into a Rule.
func RuleFunc[T any](name string, fn func(T) Result) Rule[T] {
	return ruleFunc[T]{name: name, fn: fn}
}

// Validator runs rules in insertion order.
type Validator[T any] struct {
	rules []Rule[T]
}

func NewPipeline[T any](rules ...Rule[T]) *Validator[T] {
	v := &Validator[T]{}
	v.AddRules(rules...)
	return v
}

func (v *Validator[T]) AddRule(rule Rule[T]) *Validator[T] {
	v.rules = append(v.rules, rule)
	return v
}

func (v *Validator[T]) AddRules(rules ...Rule[T]) *Validator[T] {
	v.rules = append(v.rules, rules...)
	return v
}

// Validate returns the first failing result, or Success when every rule passes.
func (v *Validator[T]) Validate(input T) Result {
	for _, rule := range v.rules {
		if res := rule.Validate(input); !res.Valid {
			res.Rule = rule.Name()
			return res
		}
	}
	return Success()
}

// ValidateAll evaluates every rule and returns each result in order.
func (v *Validator[T]) ValidateAll(input T) []Result {
	results := make([]Result, 0, len(v.rules))
	for _, rule := range v.rules {
		res := rule.Validate(input)
		res.Rule = rule.Name()
		results = append(results, res)
	}
	return results
}

func (v *Validator[T]) Clear() {
	v.rules = nil
}

func (v *Validator[T]) Len() int {
	return len(v.rules)
}
