package controller

// Change identifies which part of the controller state changed.
type Change int

const (
	ChangeConversations Change = iota // list membership or order
	ChangeCurrent
	ChangeTitle
	ChangeMessages
	ChangeSending
	ChangeError
	ChangeAPIKey
	ChangeModel
)

var changeNames = map[Change]string{
	ChangeConversations: "conversations",
	ChangeCurrent:       "current",
	ChangeTitle:         "title",
	ChangeMessages:      "messages",
	ChangeSending:       "sending",
	ChangeError:         "error",
	ChangeAPIKey:        "api_key",
	ChangeModel:         "model",
}

func (ch Change) String() string {
	if name, ok := changeNames[ch]; ok {
		return name
	}
	return "unknown"
}

type observers struct {
	next  int
	funcs map[int]func(Change)
	order []int
}

// Subscribe registers fn to be called synchronously after every state change.
// The returned function removes the subscription.
func (c *Controller) Subscribe(fn func(Change)) (unsubscribe func()) {
	o := &c.observers
	if o.funcs == nil {
		o.funcs = make(map[int]func(Change))
	}
	id := o.next
	o.next++
	o.funcs[id] = fn
	o.order = append(o.order, id)

	return func() {
		delete(o.funcs, id)
		for i, v := range o.order {
			if v == id {
				o.order = append(o.order[:i], o.order[i+1:]...)
				break
			}
		}
	}
}

func (c *Controller) notify(ch Change) {
	ids := make([]int, len(c.observers.order))
	copy(ids, c.observers.order)
	for _, id := range ids {
		if fn, ok := c.observers.funcs[id]; ok {
			fn(ch)
		}
	}
}
