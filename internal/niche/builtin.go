package niche

// Builtin returns the default niche catalog for forestry, agricultural and
// cutting-equipment distribution in Mexico.
func Builtin() *Catalog {
	c, err := NewCatalog(builtinNiches)
	if err != nil {
		panic(err) // static data
	}
	return c
}

var builtinNiches = []Niche{
	{
		ID:             "dealer_specialist",
		Name:           "1. Dealer Especialista con Taller",
		Description:    "Centros de servicio técnico y reparación. Buscan consumibles (cadenas, barras), refacciones y herramientas de afilado.",
		Priority:       PriorityHigh,
		PriorityStates: []string{"Durango", "Chihuahua", "Michoacán", "Jalisco", "Guerrero", "Chiapas"},
		SCIANCodes:     []string{"433210", "811310"},
		Keywords: []string{
			"Refacciones para motosierras profesionales",
			"Taller de afilado de cadenas",
			"Venta de barras para motosierra",
			"Sprocket y piñones para motosierra",
			"Reparación de equipos de corte",
			"Mantenimiento de sistemas de corte",
			"Distribuidor de refacciones forestales",
			"Accesorios para motosierras de gasolina",
			"Especialistas en motores de 2 tiempos",
			"Taller mecánico de herramientas forestales",
			"Venta de limas y accesorios de afilado",
		},
		NegativeKeywords: []string{"home depot", "lowes", "walmart", "truper", "pretul"},
	},
	{
		ID:             "field_contractor",
		Name:           "2. Operador de Batalla (Contratista)",
		Description:    "Contratistas de campo, poda técnica y despeje de vías. Compran por volumen cadenas, barras y equipo de seguridad.",
		Priority:       PriorityHigh,
		PriorityStates: []string{"Veracruz", "Puebla", "Oaxaca", "Tabasco", "Quintana Roo"},
		SCIANCodes:     []string{"113310", "561730"},
		Keywords: []string{
			"Contratista de aprovechamiento forestal",
			"Mantenimiento de derechos de vía CFE",
			"Servicios de desmonte y tala",
			"Empresa de poda de altura",
			"Control de vegetación industrial",
			"Limpieza de brechas cortafuego",
			"Cosecha de madera industrial",
			"Suministro de equipo de seguridad forestal",
			"Proveedores de consumibles de corte",
			"Cuadrillas de tala y despeje",
		},
		NegativeKeywords: []string{"jardinería residencial", "diseño de jardines", "vivero"},
	},
	{
		ID:             "regional_wholesaler",
		Name:           "3. Multiplicador de Capilaridad (Mayoreo)",
		Description:    "Mayoristas regionales que abastecen ferreterías rurales. Buscan sistemas de corte como refacción agrícola.",
		Priority:       PriorityMedium,
		PriorityStates: []string{"Guanajuato", "Querétaro", "Coahuila", "Nuevo León", "San Luis Potosí"},
		SCIANCodes:     []string{"432110"},
		Keywords: []string{
			"Mayoreo de refacciones agrícolas",
			"Distribuidora de accesorios para motosierras",
			"Venta al por mayor de barras y cadenas",
			"Proveedor de refacciones para el campo",
			"Distribuidor de implementos de corte",
			"Mayoreo de equipo de protección personal agrícola",
			"Suministros para ferreterías rurales",
			"Importadora de refacciones forestales y agrícolas",
		},
		NegativeKeywords: []string{"tractores", "agroquímicos", "fertilizantes"},
	},
}
