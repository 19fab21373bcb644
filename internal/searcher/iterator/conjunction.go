package iterator

import "sort"

type conjunction struct {
	lead   Scorer
	others []Scorer
	all    []Scorer
	doc    int
}

// Conjunction matches documents every sub-scorer matches and sums their
// scores. The cheapest sub-scorer leads the advance sweep.
func Conjunction(subs ...Scorer) Scorer {
	switch len(subs) {
	case 0:
		return Empty()
	case 1:
		return subs[0]
	}
	ordered := make([]Scorer, len(subs))
	copy(ordered, subs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Cost() < ordered[j].Cost()
	})
	return &conjunction{
		lead:   ordered[0],
		others: ordered[1:],
		all:    ordered,
		doc:    -1,
	}
}

func (c *conjunction) DocID() int  { return c.doc }
func (c *conjunction) Cost() int64 { return c.lead.Cost() }

func (c *conjunction) NextDoc() int {
	if c.doc == NoMoreDocs {
		return c.doc
	}
	return c.align(c.lead.NextDoc())
}

func (c *conjunction) Advance(target int) int {
	if stay(c.doc, target) {
		return c.doc
	}
	return c.align(c.lead.Advance(target))
}

func (c *conjunction) align(doc int) int {
	for {
		if doc == NoMoreDocs {
			c.doc = NoMoreDocs
			return c.doc
		}
		agreed := true
		for _, o := range c.others {
			d := o.DocID()
			if d < doc {
				d = o.Advance(doc)
			}
			if d > doc {
				doc = c.lead.Advance(d)
				agreed = false
				break
			}
		}
		if agreed {
			c.doc = doc
			return doc
		}
	}
}

func (c *conjunction) Score() float64 {
	var sum float64
	for _, s := range c.all {
		sum += s.Score()
	}
	return sum
}
