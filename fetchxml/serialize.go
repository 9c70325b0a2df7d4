package fetchxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
)

// Serialize renders the document to its wire XML form (§6.3). Aggregate and
// date-grouping attributes are emitted with their *Specified companions so
// "not present" and "present but false/empty" remain distinguishable on the
// wire, exactly as spec.md requires.
func Serialize(fx *Fetch) (string, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	start := xml.StartElement{Name: xml.Name{Local: "fetch"}}
	start.Attr = appendBoolAttr(start.Attr, "distinct", fx.Distinct, false)
	if fx.Top != nil {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "top"}, Value: strconv.Itoa(*fx.Top)})
	}
	if fx.Count != nil {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "count"}, Value: strconv.Itoa(*fx.Count)})
	}
	if fx.Page != nil {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "page"}, Value: strconv.Itoa(*fx.Page)})
	}
	start.Attr = appendBoolAttr(start.Attr, "no-lock", fx.NoLock, false)
	start.Attr = appendBoolAttr(start.Attr, "aggregate", fx.Aggregate, false)
	if fx.PagingCookie != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "paging-cookie"}, Value: fx.PagingCookie})
	}

	if err := enc.EncodeToken(start); err != nil {
		return "", err
	}
	if fx.Entity != nil {
		if err := encodeEntity(enc, fx.Entity); err != nil {
			return "", err
		}
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func appendBoolAttr(attrs []xml.Attr, name string, value, omitFalse bool) []xml.Attr {
	if omitFalse && !value {
		return attrs
	}
	return append(attrs, xml.Attr{Name: xml.Name{Local: name}, Value: strconv.FormatBool(value)})
}

func encodeEntity(enc *xml.Encoder, e *Entity) error {
	start := xml.StartElement{Name: xml.Name{Local: "entity"}, Attr: []xml.Attr{{Name: xml.Name{Local: "name"}, Value: e.Name}}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, it := range e.Items {
		if err := encodeItem(enc, it); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func encodeItem(enc *xml.Encoder, it Item) error {
	switch v := it.(type) {
	case *Attribute:
		return encodeAttribute(enc, v)
	case *AllAttributes:
		start := xml.StartElement{Name: xml.Name{Local: "all-attributes"}}
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		return enc.EncodeToken(start.End())
	case *Order:
		return encodeOrder(enc, v)
	case *Filter:
		return encodeFilter(enc, v)
	case *LinkEntity:
		return encodeLinkEntity(enc, v)
	default:
		return fmt.Errorf("fetchxml: unknown item type %T", it)
	}
}

func encodeAttribute(enc *xml.Encoder, a *Attribute) error {
	start := xml.StartElement{Name: xml.Name{Local: "attribute"}}
	start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "name"}, Value: a.Name})
	if a.Alias != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "alias"}, Value: a.Alias})
	}
	if a.AggregateSpecified {
		start.Attr = append(start.Attr,
			xml.Attr{Name: xml.Name{Local: "aggregate"}, Value: a.Aggregate},
			xml.Attr{Name: xml.Name{Local: "aggregateSpecified"}, Value: "true"},
		)
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "distinct"}, Value: strconv.FormatBool(a.Distinct)})
	}
	if a.DateGroupingSpecified {
		start.Attr = append(start.Attr,
			xml.Attr{Name: xml.Name{Local: "dategrouping"}, Value: a.DateGrouping},
			xml.Attr{Name: xml.Name{Local: "dategroupingSpecified"}, Value: "true"},
		)
	}
	if a.GroupBy {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "groupby"}, Value: "true"})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}

func encodeOrder(enc *xml.Encoder, o *Order) error {
	start := xml.StartElement{Name: xml.Name{Local: "order"}}
	if o.Attribute != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "attribute"}, Value: o.Attribute})
	}
	if o.Alias != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "alias"}, Value: o.Alias})
	}
	if o.Descending {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "descending"}, Value: "true"})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}

func encodeFilter(enc *xml.Encoder, f *Filter) error {
	filterType := f.Type
	if filterType == FilterIndeterminate {
		filterType = FilterAnd
	}
	start := xml.StartElement{Name: xml.Name{Local: "filter"}, Attr: []xml.Attr{{Name: xml.Name{Local: "type"}, Value: string(filterType)}}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, it := range f.Items {
		switch v := it.(type) {
		case *Condition:
			if err := encodeCondition(enc, v); err != nil {
				return err
			}
		case *Filter:
			if err := encodeFilter(enc, v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("fetchxml: unexpected filter child %T", it)
		}
	}
	return enc.EncodeToken(start.End())
}

func encodeCondition(enc *xml.Encoder, c *Condition) error {
	start := xml.StartElement{Name: xml.Name{Local: "condition"}}
	if c.EntityName != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "entityname"}, Value: c.EntityName})
	}
	start.Attr = append(start.Attr,
		xml.Attr{Name: xml.Name{Local: "attribute"}, Value: c.Attribute},
		xml.Attr{Name: xml.Name{Local: "operator"}, Value: c.Operator},
	)
	if c.Value != nil {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "value"}, Value: *c.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, v := range c.Values {
		valueStart := xml.StartElement{Name: xml.Name{Local: "value"}}
		if err := enc.EncodeToken(valueStart); err != nil {
			return err
		}
		if err := enc.EncodeToken(xml.CharData(v)); err != nil {
			return err
		}
		if err := enc.EncodeToken(valueStart.End()); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func encodeLinkEntity(enc *xml.Encoder, l *LinkEntity) error {
	start := xml.StartElement{Name: xml.Name{Local: "link-entity"}}
	start.Attr = append(start.Attr,
		xml.Attr{Name: xml.Name{Local: "name"}, Value: l.Name},
		xml.Attr{Name: xml.Name{Local: "alias"}, Value: l.Alias},
		xml.Attr{Name: xml.Name{Local: "from"}, Value: l.From},
		xml.Attr{Name: xml.Name{Local: "to"}, Value: l.To},
	)
	linkType := "inner"
	if l.LinkType == JoinOuter {
		linkType = "outer"
	}
	start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "link-type"}, Value: linkType})
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, it := range l.Items {
		if err := encodeItem(enc, it); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}
