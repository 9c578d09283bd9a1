// Package payload decodes REE apidatos JSON documents.
//
// Only the parts of the document the loader reads are modelled. Fields that
// the extraction depends on are decoded as pointers so an absent key can be
// told apart from an empty one and reported as a *FieldError instead of
// surfacing later as a zero value.
//
//	doc, err := payload.Decode(body)
//	if err != nil {
//		return err
//	}
//	values, err := doc.FirstValues()     // included[0].attributes.values
//	groups, err := doc.Categorize()      // included[*] grouped by type
//
// A typical included element looks like:
//
//	{
//	  "type": "Renovable",
//	  "id": "10288",
//	  "attributes": {
//	    "title": "Hidráulica",
//	    "color": "#0090d1",
//	    "last-update": "2024-03-01T09:12:33.000+01:00",
//	    "values": [{"value": 2384.1, "percentage": 0.12, "datetime": "2023-01-01T00:00:00.000+01:00"}]
//	  }
//	}
package payload
