package core

// EffectOutcome reports a best-effort side effect that ran after commit.
// A failed effect never undoes the committed change.
type EffectOutcome struct {
	Name    string `json:"name"`
	Skipped bool   `json:"skipped,omitempty"`
	Err     error  `json:"-"`
	Error   string `json:"error,omitempty"`
}

// OK reports that the effect ran or was deliberately skipped.
func (o EffectOutcome) OK() bool { return o.Err == nil }

func effectDone(name string, err error) EffectOutcome {
	o := EffectOutcome{Name: name, Err: err}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

func effectSkipped(name string) EffectOutcome {
	return EffectOutcome{Name: name, Skipped: true}
}

// Effects is the ordered list of post-commit outcomes of one operation.
type Effects []EffectOutcome

// Failed returns the outcomes that returned an error.
func (e Effects) Failed() Effects {
	var out Effects
	for _, o := range e {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

const (
	EffectApprovalRegister = "approval.register"
	EffectApprovalCancel   = "approval.cancel"
	EffectSupplierNotify   = "supplier.notify"
)
