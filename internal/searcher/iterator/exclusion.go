package iterator

type reqExcl struct {
	req  Scorer
	excl DocIterator
	doc  int
}

// Exclude matches the documents of req that excl does not match.
func Exclude(req Scorer, excl DocIterator) Scorer {
	return &reqExcl{req: req, excl: excl, doc: -1}
}

func (r *reqExcl) DocID() int     { return r.doc }
func (r *reqExcl) Cost() int64    { return r.req.Cost() }
func (r *reqExcl) Score() float64 { return r.req.Score() }

func (r *reqExcl) NextDoc() int {
	if r.doc == NoMoreDocs {
		return r.doc
	}
	return r.skipExcluded(r.req.NextDoc())
}

func (r *reqExcl) Advance(target int) int {
	if stay(r.doc, target) {
		return r.doc
	}
	return r.skipExcluded(r.req.Advance(target))
}

func (r *reqExcl) skipExcluded(doc int) int {
	for doc != NoMoreDocs {
		ex := r.excl.DocID()
		if ex < doc {
			ex = r.excl.Advance(doc)
		}
		if ex != doc {
			break
		}
		doc = r.req.NextDoc()
	}
	r.doc = doc
	return doc
}

type reqOpt struct {
	req Scorer
	opt Scorer
}

// Optional matches the documents of req; opt only adds its score where it
// also matches.
func Optional(req, opt Scorer) Scorer {
	return &reqOpt{req: req, opt: opt}
}

func (r *reqOpt) DocID() int             { return r.req.DocID() }
func (r *reqOpt) NextDoc() int           { return r.req.NextDoc() }
func (r *reqOpt) Advance(target int) int { return r.req.Advance(target) }
func (r *reqOpt) Cost() int64            { return r.req.Cost() }

func (r *reqOpt) Score() float64 {
	doc := r.req.DocID()
	score := r.req.Score()
	od := r.opt.DocID()
	if od < doc {
		od = r.opt.Advance(doc)
	}
	if od == doc {
		score += r.opt.Score()
	}
	return score
}
