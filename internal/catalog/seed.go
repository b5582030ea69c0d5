package catalog

// Palette is the built-in starter palette loaded into an empty catalog.
var Palette = []Ingredient{
	{ID: "ing-1", Name: "Iso E Super", Vendor: "IFF", Cost: 0.12, Note: NoteBase, Families: []string{"Woody", "Amber"}, IFRALimit: 20, CAS: "54464-57-2",
		Description: "Velvety, woody, dry amber note. Provides fullness and subtle strength."},
	{ID: "ing-2", Name: "Hedione HC", Vendor: "Firmenich", Cost: 0.08, Note: NoteMid, Families: []string{"Floral", "Citrus"}, IFRALimit: 100, CAS: "24851-98-7",
		Description: "Transparent floral, jasmine-like, citrusy. Adds radiance and volume."},
	{ID: "ing-3", Name: "Bergamot Oil Reggio", Vendor: "Capua 1880", Cost: 0.65, Note: NoteTop, Families: []string{"Citrus", "Floral"}, IsAllergen: true, IFRALimit: 0.4, CAS: "8007-75-8",
		Description: "Fresh, zesty, sparkling citrus note with a distinct floral-peppery undertone."},
	{ID: "ing-4", Name: "Ambroxan", Vendor: "Kao", Cost: 0.85, Note: NoteBase, Families: []string{"Amber", "Musky"}, IFRALimit: 100, CAS: "6790-58-5",
		Description: "Extremely powerful, ambergris-like, woody-amber note with dry, musky facets."},
	{ID: "ing-5", Name: "Rose Absolute", Vendor: "Robertet", Cost: 4.5, Note: NoteMid, Families: []string{"Floral", "Spicy"}, IsAllergen: true, IFRALimit: 0.1, CAS: "8007-01-0",
		Description: "Deep, rich, spicy, honey-like rose. Classic floral heart for fine fragrance."},
	{ID: "ing-6", Name: "Linalool", Vendor: "BASF", Cost: 0.05, Note: NoteTop, Families: []string{"Floral", "Woody"}, IsAllergen: true, IFRALimit: 100, CAS: "78-70-6",
		Description: "Floral, fresh, lavender-like, woody. A key building block for floral accords."},
	{ID: "ing-7", Name: "Vetiver Haiti", Vendor: "IFF", Cost: 1.2, Note: NoteBase, Families: []string{"Woody", "Earthy"}, IFRALimit: 100, CAS: "8016-96-4",
		Description: "Smoky, woody, earthy, rooty. Essential for masculine and woody fragrances."},
	{ID: "ing-8", Name: "Mandarin Red", Vendor: "Naturals", Cost: 0.4, Note: NoteTop, Families: []string{"Citrus", "Fruity"}, IsAllergen: true, IFRALimit: 100, CAS: "8008-31-9",
		Description: "Sweet, juicy, tangy citrus note. Adds brightness and joy."},
	{ID: "ing-9", Name: "Lavender Abs.", Vendor: "Naturals", Cost: 2.1, Note: NoteMid, Families: []string{"Floral", "Green"}, IsAllergen: true, IFRALimit: 100, CAS: "8000-28-0",
		Description: "Rich, floral, herbaceous, sweet. The heart of fougères."},
	{ID: "ing-10", Name: "Galaxolide", Vendor: "IFF", Cost: 0.04, Note: NoteBase, Families: []string{"Musky", "Floral"}, IFRALimit: 100, CAS: "1222-05-5",
		Description: "Clean, sweet, musky, floral. Very long lasting and substantive."},
	{ID: "ing-11", Name: "Jasmine Absolute", Vendor: "Givaudan", Cost: 15.5, Note: NoteMid, Families: []string{"Floral", "Animalic"}, IsAllergen: true, IFRALimit: 0.7, CAS: "8022-96-6",
		Description: "Intense, warm, rich, floral, tea-like with spicy and fruity undertones."},
	{ID: "ing-12", Name: "Sandalwood Oil", Vendor: "Perfumer's World", Cost: 2.5, Note: NoteBase, Families: []string{"Woody"}, IFRALimit: 15, CAS: "8006-87-9",
		Description: "Soft, sweet-woody, balsamic, tenacious, consistent."},
	{ID: "ing-13", Name: "Patchouli Oil", Vendor: "IFF", Cost: 0.9, Note: NoteBase, Families: []string{"Earthy", "Woody"}, IFRALimit: 100, CAS: "8014-09-3",
		Description: "Rich, sweet-herbaceous, aromatic, spicy and woody-balsamic."},
	{ID: "ing-14", Name: "Clove Bud Oil", Vendor: "Symrise", Cost: 2.1, Note: NoteMid, Families: []string{"Spicy"}, IsAllergen: true, IFRALimit: 0.5, CAS: "8000-34-8",
		Description: "Warm, strong, spicy, phenolic, sweet-woody."},
	{ID: "ing-15", Name: "Calone 1951", Vendor: "Perfumer's Apprentice", Cost: 3, Note: NoteTop, Families: []string{"Aquatic"}, IFRALimit: 100, CAS: "28940-11-6",
		Description: "The classic marine note. Sea breeze, oyster, watermelon."},
	{ID: "ing-16", Name: "Galbanum Res.", Vendor: "Givaudan", Cost: 7, Note: NoteTop, Families: []string{"Green"}, IFRALimit: 0.5, CAS: "8023-91-4",
		Description: "Intensely green, bitter, leafy, peppery, woody-balsamic."},
}
